package contract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MockProviderConfig configures the address the mock provider listens on.
type MockProviderConfig struct {
	Host   string
	Port   int // 0 picks a free port
	Logger *zap.Logger
}

// MockServerConfig is handed to the consumer test to reach the running mock.
type MockServerConfig struct {
	Host    string
	Port    int
	BaseURL string
}

// UnexpectedRequest is a request the mock could not match to any interaction.
type UnexpectedRequest struct {
	Method     string
	Path       string
	Mismatches []Mismatch
}

// MockVerificationError reports interactions the consumer never exercised and
// requests the mock did not expect.
type MockVerificationError struct {
	Missing    []string
	Unexpected []UnexpectedRequest
}

func (e *MockVerificationError) Error() string {
	var b strings.Builder
	b.WriteString("mock provider verification failed")
	for _, desc := range e.Missing {
		fmt.Fprintf(&b, "\n  - interaction not exercised: %q", desc)
	}
	for _, u := range e.Unexpected {
		fmt.Fprintf(&b, "\n  - unexpected request: %s %s", u.Method, u.Path)
	}
	return b.String()
}

// MockProvider plays the provider's side of a pact for consumer tests.
type MockProvider struct {
	pact *Pact
	cfg  MockProviderConfig
	log  *zap.Logger

	mu         sync.Mutex
	hits       map[*Interaction]int
	unexpected []UnexpectedRequest
}

// NewMockProvider creates a mock provider for the interactions of p.
func NewMockProvider(p *Pact, cfg MockProviderConfig) (*MockProvider, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &MockProvider{
		pact: p,
		cfg:  cfg,
		log:  cfg.Logger.With(zap.String("consumer", p.Consumer.Name), zap.String("provider", p.Provider.Name)),
	}, nil
}

// ExecuteTest starts the mock, runs fn against it and stops it again. It fails
// when fn fails, when an interaction was not exercised or when fn sent a
// request no interaction matches.
func (m *MockProvider) ExecuteTest(ctx context.Context, fn func(MockServerConfig) error) error {
	m.reset()

	lc := net.ListenConfig{}
	lis, err := lc.Listen(ctx, "tcp", net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port)))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Any("/*path", m.handle)

	srv := &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 2 * time.Second,
	}

	g := new(errgroup.Group)
	g.Go(func() error {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mock provider: %w", err)
		}
		return nil
	})

	addr := lis.Addr().(*net.TCPAddr)
	mockCfg := MockServerConfig{
		Host:    m.cfg.Host,
		Port:    addr.Port,
		BaseURL: "http://" + net.JoinHostPort(m.cfg.Host, strconv.Itoa(addr.Port)),
	}
	m.log.Debug("mock provider started", zap.String("base_url", mockCfg.BaseURL))

	stopped := false
	stop := func() error {
		if stopped {
			return nil
		}
		stopped = true

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop mock provider: %w", err))
		}
		if err := g.Wait(); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	}
	// fn may panic or call runtime.Goexit
	defer func() { _ = stop() }()

	testErr := fn(mockCfg)

	var errs []error
	if testErr != nil {
		errs = append(errs, fmt.Errorf("consumer test failed: %w", testErr))
	}
	if err := stop(); err != nil {
		errs = append(errs, err)
	}
	if err := m.verify(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (m *MockProvider) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits = make(map[*Interaction]int, len(m.pact.Interactions))
	m.unexpected = nil
}

func (m *MockProvider) handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var closest []Mismatch
	for _, i := range m.pact.Interactions {
		mismatches := compareRequest(i.Request, c.Request, body)
		if len(mismatches) == 0 {
			m.record(i)
			m.respond(c, i.Response)
			return
		}
		if closest == nil || len(mismatches) < len(closest) {
			closest = mismatches
		}
	}

	u := UnexpectedRequest{Method: c.Request.Method, Path: c.Request.URL.Path, Mismatches: closest}
	m.mu.Lock()
	m.unexpected = append(m.unexpected, u)
	m.mu.Unlock()

	m.log.Warn("unexpected request",
		zap.String("method", u.Method),
		zap.String("path", u.Path),
		zap.Int("mismatches", len(closest)),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error":      "no interaction matches the request",
		"method":     u.Method,
		"path":       u.Path,
		"mismatches": closest,
	})
}

func (m *MockProvider) record(i *Interaction) {
	m.mu.Lock()
	m.hits[i]++
	m.mu.Unlock()
	m.log.Debug("interaction matched", zap.String("description", i.Description))
}

func (m *MockProvider) respond(c *gin.Context, resp Response) {
	data, err := resp.Body.Bytes()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	header := c.Writer.Header()
	for name, values := range resp.Headers {
		for _, v := range values {
			header.Add(name, v)
		}
	}
	if len(data) > 0 && header.Get("Content-Type") == "" && resp.Body.ContentType != "" {
		header.Set("Content-Type", resp.Body.ContentType)
	}

	c.Status(resp.Status)
	c.Writer.WriteHeaderNow()
	if len(data) > 0 {
		_, _ = c.Writer.Write(data)
	}
}

func (m *MockProvider) verify() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var verr MockVerificationError
	for _, i := range m.pact.Interactions {
		if m.hits[i] == 0 {
			verr.Missing = append(verr.Missing, i.Description)
		}
	}
	verr.Unexpected = append(verr.Unexpected, m.unexpected...)

	if len(verr.Missing) == 0 && len(verr.Unexpected) == 0 {
		return nil
	}
	return &verr
}
