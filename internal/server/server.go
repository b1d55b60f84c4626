package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jamiewalsh/careerprep/internal/config"
	"github.com/jamiewalsh/careerprep/internal/db"
	"github.com/jamiewalsh/careerprep/internal/interview"
	"github.com/jamiewalsh/careerprep/internal/llm"
	"github.com/jamiewalsh/careerprep/internal/portfolio"
	"github.com/jamiewalsh/careerprep/internal/quiz"
	"github.com/jamiewalsh/careerprep/internal/resume"
	"github.com/jamiewalsh/careerprep/internal/roadmap"
	"github.com/jamiewalsh/careerprep/internal/server/middleware"
	"github.com/jamiewalsh/careerprep/internal/server/ratelimit"
	"github.com/jamiewalsh/careerprep/internal/speech"
)

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	db          *db.DB
	llmClient   llm.Client
	tts         *speech.Client
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	userService *UserService
	authHandler *AuthHandler

	sessions   *interview.Store
	turnDriver *interview.TurnDriver
	roadmaps   *roadmap.Generator
	progress   *roadmap.ProgressTracker
	analyzer   *resume.Analyzer
	portfolios *portfolio.Generator
	quizzes    *quiz.Assembler

	requestTimeout time.Duration
}

// New creates a new server instance
func New(cfg *config.Config) (*Server, error) {
	// Resolve auth configuration before opening any connection so a bad auth
	// environment fails without resources to clean up.
	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create password config: %w", err)
	}
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}

	// Connect to database
	database, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	llmClient, err := llm.NewClient(context.Background(), llm.DefaultConfig(), cfg.GeminiAPIKey)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	s := &Server{
		db:             database,
		llmClient:      llmClient,
		sessions:       interview.NewStore(),
		turnDriver:     interview.NewTurnDriver(llmClient),
		roadmaps:       roadmap.NewGenerator(llmClient),
		progress:       roadmap.NewProgressTracker(database),
		analyzer:       resume.NewAnalyzer(llmClient),
		portfolios:     portfolio.NewGenerator(llmClient),
		quizzes:        quiz.NewAssembler(llmClient, database),
		requestTimeout: cfg.RequestTimeout,
	}

	// TTS is optional; without it interviews run text-only.
	if cfg.TTSBaseURL != "" {
		s.tts = speech.NewClient(&speech.Config{
			BaseURL: cfg.TTSBaseURL,
			APIKey:  cfg.TTSAPIKey,
			Voice:   cfg.TTSVoice,
		})
	}

	// Initialize rate limiter
	s.rateLimiter = ratelimit.NewLimiter(ratelimit.LoadConfig())

	// Initialize authentication services
	s.userService = NewUserService(database, passwordConfig)
	s.jwtService = NewJWTService(jwtConfig)
	s.authHandler = NewAuthHandler(s.userService, s.jwtService)

	mux := s.routes()

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Long timeout for generation and feedback streams
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// routes builds the router. Routes that operate on a user's stored data
// require a JWT; interview sessions are addressed by their own unguessable
// ID, and the live gateway must stay reachable from browser WebSocket
// clients that cannot set an Authorization header.
func (s *Server) routes() *http.ServeMux {
	auth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	protected := func(h http.HandlerFunc) http.Handler {
		return auth(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Authentication endpoints
	mux.HandleFunc("POST /auth/register", s.authHandler.Register)
	mux.HandleFunc("POST /auth/login", s.authHandler.Login)
	mux.Handle("PUT /auth/password", protected(s.handleUpdatePassword))
	mux.Handle("GET /users/me", protected(s.handleGetMe))

	// Resume endpoints
	mux.Handle("POST /resumes", protected(s.handleCreateResume))
	mux.Handle("GET /resumes", protected(s.handleListResumes))
	mux.Handle("GET /resumes/{id}", protected(s.handleGetResume))
	mux.Handle("PUT /resumes/{id}", protected(s.handleUpdateResume))
	mux.Handle("DELETE /resumes/{id}", protected(s.handleDeleteResume))

	// Roadmap endpoints
	mux.Handle("POST /roadmaps", protected(s.handleGenerateRoadmap))
	mux.Handle("POST /roadmaps/stream", protected(s.handleGenerateRoadmapStream))
	mux.Handle("GET /roadmaps", protected(s.handleListRoadmaps))
	mux.Handle("GET /roadmaps/{id}", protected(s.handleGetRoadmap))
	mux.Handle("DELETE /roadmaps/{id}", protected(s.handleDeleteRoadmap))
	mux.Handle("PATCH /roadmaps/{id}/progress", protected(s.handleRoadmapProgress))

	// Resume analysis
	mux.Handle("POST /analysis", protected(s.handleAnalyzeResume))

	// Portfolio endpoints
	mux.Handle("POST /portfolio", protected(s.handleGeneratePortfolio))
	mux.Handle("GET /portfolio", protected(s.handleGetPortfolio))

	// Quiz endpoints
	mux.Handle("POST /quizzes", protected(s.handleAssembleQuiz))
	mux.Handle("POST /quiz-questions", protected(s.handleAddQuizQuestion))

	// Interview session endpoints
	mux.HandleFunc("POST /interviews", s.handleCreateInterview)
	mux.HandleFunc("GET /interviews/{id}", s.handleGetInterview)
	mux.HandleFunc("POST /interviews/{id}/start", s.handleStartInterview)
	mux.HandleFunc("POST /interviews/{id}/listen", s.handleBeginListening)
	mux.HandleFunc("POST /interviews/{id}/turns", s.handleCandidateTurn)
	mux.HandleFunc("POST /interviews/{id}/end", s.handleEndInterview)
	mux.HandleFunc("GET /interviews/{id}/feedback", s.handleGetFeedback)
	mux.HandleFunc("GET /interviews/{id}/feedback/stream", s.handleStreamFeedback)
	mux.HandleFunc("DELETE /interviews/{id}", s.handleDeleteInterview)
	mux.HandleFunc("GET /interviews/{id}/live", s.handleLive)

	// Speech synthesis
	mux.HandleFunc("POST /speech", s.handleSynthesize)

	return mux
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	if err := s.llmClient.Close(); err != nil {
		log.Printf("Error closing LLM client: %v", err)
	}
	s.db.Close()
	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		if !allowed {
			s.setRateLimitHeaders(w, info)
			s.rateLimitResponse(w, info)
			return
		}

		s.setRateLimitHeaders(w, info)
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpdatePassword handles password update requests.
func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	s.authHandler.UpdatePasswordWithUserID(w, r, userID)
}

// handleGetMe returns the authenticated user's profile.
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	dbUser, err := s.db.GetUser(r.Context(), userID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to get user")
		return
	}
	if dbUser == nil {
		s.errorResponse(w, http.StatusNotFound, "user not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, convertDBUserToTypesUser(dbUser))
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID extracts the client identifier from the request.
// For MVP, this uses the IP address from RemoteAddr.
// In the future, this could use X-Forwarded-For header (only from trusted proxies).
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
