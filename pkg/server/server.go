package server

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/mkthr/wikigram/internal/logger"
	"github.com/mkthr/wikigram/pkg/predict"
)

var slog = logger.New("ipc")

// Server handles the IPC for n-gram score queries.
type Server struct {
	engine *predict.Engine
	dec    *msgpack.Decoder
	enc    *msgpack.Encoder
}

// NewServer creates a query server using stdin/stdout for IPC.
func NewServer(engine *predict.Engine) *Server {
	return &Server{
		engine: engine,
		dec:    msgpack.NewDecoder(os.Stdin),
		enc:    msgpack.NewEncoder(os.Stdout),
	}
}

// NewServerWith creates a query server over explicit streams. Used by tests.
func NewServerWith(engine *predict.Engine, r io.Reader, w io.Writer) *Server {
	return &Server{
		engine: engine,
		dec:    msgpack.NewDecoder(r),
		enc:    msgpack.NewEncoder(w),
	}
}

// Start processes requests until the input stream closes.
func (s *Server) Start() error {
	slog.Debug("Starting query server.")
	s.send(StatusResponse{Status: "ready", Keys: s.engine.Map().Len()})

	for {
		var req request
		if err := s.dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			slog.Errorf("Decoding request: %v", err)
			s.send(ErrorResponse{Error: "invalid msgpack request", Code: 400})
			continue
		}
		s.handle(req)
	}
}

func (s *Server) handle(req request) {
	switch {
	case req.Key != "":
		s.handleLookup(req)
	case req.Prefix != "":
		s.handlePredict(req)
	default:
		s.send(ErrorResponse{ID: req.ID, Error: "request needs a key or a prefix", Code: 400})
	}
}

func (s *Server) handleLookup(req request) {
	start := time.Now()
	value, found := s.engine.Lookup(req.Key)
	s.send(LookupResponse{
		ID:        req.ID,
		Value:     value,
		Found:     found,
		TimeTaken: time.Since(start).Microseconds(),
	})
}

func (s *Server) handlePredict(req request) {
	start := time.Now()
	preds := s.engine.Predict(req.Prefix, req.Limit)

	suggestions := make([]PredictSuggestion, len(preds))
	for i, p := range preds {
		suggestions[i] = PredictSuggestion{Ngram: p.Ngram, Count: p.Count}
	}
	s.send(PredictResponse{
		ID:          req.ID,
		Suggestions: suggestions,
		Count:       len(suggestions),
		TimeTaken:   time.Since(start).Microseconds(),
	})
}

func (s *Server) send(response any) {
	if err := s.enc.Encode(response); err != nil {
		slog.Errorf("Encoding response: %v", err)
	}
}
