package jws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cybergodev/jws/internal/metrics"
)

// Processor signs and verifies compact tokens under one configuration.
// It is safe for concurrent use.
type Processor struct {
	validate       JOSEValidator
	format         Format
	maxTokenLength int
	nonces         *NonceGuard
	limiter        *rate.Limiter
	logger         *slog.Logger
	metrics        *metrics.Recorder

	mu     sync.RWMutex
	closed bool
}

// New creates a Processor that resolves algorithms with resolver and
// applies the optional configuration (DefaultConfig when omitted).
func New(resolver AlgorithmResolver, config ...Config) (*Processor, error) {
	if resolver == nil {
		return nil, fmt.Errorf("%w: algorithm resolver is required", ErrInvalidConfig)
	}

	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	} else {
		cfg = DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	var handlers []HeaderHandler
	if len(cfg.AllowedAlgorithms) > 0 {
		handlers = append(handlers, AllowAlgorithms(cfg.AllowedAlgorithms...))
	}

	var nonces *NonceGuard
	if cfg.RequireNonce {
		guard, err := NewNonceGuard(cfg.NonceTTL)
		if err != nil {
			return nil, err
		}
		nonces = guard
		handlers = append(handlers, nonces.Check)
	}

	validate, err := NewJOSEValidator(resolver, RequireUnderstood(cfg.CriticalParameters...), handlers...)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	processor := &Processor{
		validate:       validate,
		format:         cfg.Format,
		maxTokenLength: cfg.MaxTokenLength,
		nonces:         nonces,
		limiter:        cfg.signLimiter(),
		logger:         logger,
		metrics:        metrics.New(cfg.Registerer),
	}

	runtime.SetFinalizer(processor, (*Processor).finalize)
	return processor, nil
}

// Sign produces a compact token for payload under header.
func (p *Processor) Sign(payload []byte, header Header) (string, error) {
	return p.SignWithContext(context.Background(), payload, header)
}

// SignWithContext produces a compact token with context support
func (p *Processor) SignWithContext(ctx context.Context, payload []byte, header Header) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.checkClosed(); err != nil {
		return "", err
	}

	if p.limiter != nil && !p.limiter.Allow() {
		p.logger.Warn("sign rate limit exceeded")
		return "", ErrRateLimited
	}

	alg, _ := header.Algorithm()
	start := time.Now()

	token, err := ProduceWithContext(ctx, payload, header, p.validate, WithFormat(p.format))
	if err != nil {
		p.logger.Debug("sign failed", "alg", alg, "reason", Reason(err), "error", err)
		return "", err
	}

	p.metrics.RecordProduced(alg, time.Since(start))
	p.logger.Debug("token signed", "alg", alg)
	return token, nil
}

// Validate verifies token and returns its payload.
func (p *Processor) Validate(token string) ([]byte, error) {
	t, err := p.VerifyWithContext(context.Background(), token)
	if err != nil {
		return nil, err
	}
	return t.Payload, nil
}

// Verify verifies token and returns it decoded.
func (p *Processor) Verify(token string) (*Token, error) {
	return p.VerifyWithContext(context.Background(), token)
}

// VerifyWithContext verifies token with context support. When nonces are
// required the token's nonce is consumed only after its signature verifies.
func (p *Processor) VerifyWithContext(ctx context.Context, token string) (*Token, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.checkClosed(); err != nil {
		return nil, err
	}

	start := time.Now()

	t, err := Verify(ctx, token, p.validate, WithMaxTokenLength(p.maxTokenLength))
	if err == nil && p.nonces != nil {
		err = p.nonces.Consume(t.Header)
	}
	if err != nil {
		p.reject(err, time.Since(start))
		return nil, err
	}

	p.metrics.RecordValid(time.Since(start))
	alg, _ := t.Header.Algorithm()
	p.logger.Debug("token verified", "alg", alg)
	return t, nil
}

func (p *Processor) reject(err error, elapsed time.Duration) {
	reason := Reason(err)
	mismatch := errors.Is(err, ErrSignatureMismatch)
	p.metrics.RecordRejected(reason, mismatch, elapsed)

	if mismatch {
		p.logger.Warn("signature mismatch", "error", err)
		return
	}
	p.logger.Debug("token rejected", "reason", reason, "error", err)
}

// Inspect decodes token without verifying it. See ParseUnverified.
func (p *Processor) Inspect(token string) (Header, []byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.checkClosed(); err != nil {
		return Header{}, nil, err
	}
	if p.maxTokenLength > 0 && len(token) > p.maxTokenLength {
		return Header{}, nil, fmt.Errorf("%w: token length %d exceeds limit %d", ErrMalformedToken, len(token), p.maxTokenLength)
	}
	return ParseUnverified(token)
}

// Close releases the processor's nonce window. Later calls fail with
// ErrProcessorClosed.
func (p *Processor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrProcessorClosed
	}

	var closeErr error
	if p.nonces != nil {
		if err := p.nonces.Close(); err != nil {
			closeErr = fmt.Errorf("nonce guard close failed: %w", err)
		}
		p.nonces = nil
	}

	p.closed = true
	runtime.SetFinalizer(p, nil)
	return closeErr
}

// finalize is called by the garbage collector to ensure resources are cleaned up
func (p *Processor) finalize() {
	if !p.closed {
		_ = p.Close()
	}
}

func (p *Processor) checkClosed() error {
	if p.closed {
		return ErrProcessorClosed
	}
	return nil
}

// IsClosed returns true if the processor has been closed
func (p *Processor) IsClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}
