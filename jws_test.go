package jws

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecretKey = "Kx9#mP2$vL8@nQ5!wR7&tY3^uI6*oE4%aS1+dF0-gH9~jK2#bN5$cM8@xZ7&vB4!"

// Key, header and payload of RFC 7515 Appendix A.1.
const (
	rfcKey          = "AyM1SysPpbyDfgZld3umj1qzKObwVMkoqQ-EstJQLr_T-1qS0gZH75aKtMN3Yj0iPS4hcgUuTwjAzZr1Z9CAow"
	rfcPayload      = "{\"iss\":\"joe\",\r\n \"exp\":1300819380,\r\n \"http://example.com/is_root\":true}"
	rfcHeaderSeg    = "eyJ0eXAiOiJKV1QiLA0KICJhbGciOiJIUzI1NiJ9"
	rfcPayloadSeg   = "eyJpc3MiOiJqb2UiLA0KICJleHAiOjEzMDA4MTkzODAsDQogImh0dHA6Ly9leGFtcGxlLmNvbS9pc19yb290Ijp0cnVlfQ"
	rfcSignatureSeg = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	rfcToken        = rfcHeaderSeg + "." + rfcPayloadSeg + "." + rfcSignatureSeg
)

func rfcKeyBytes(t testing.TB) []byte {
	t.Helper()
	key, err := base64.RawURLEncoding.DecodeString(rfcKey)
	require.NoError(t, err)
	return key
}

func rfcHeader() Header {
	return MustHeader(
		Member{Name: HeaderType, Value: "JWT"},
		Member{Name: HeaderAlgorithm, Value: HS256},
	)
}

func hs256Header() Header {
	return MustHeader(Member{Name: HeaderAlgorithm, Value: HS256})
}

func newHMACValidator(t testing.TB, key []byte) JOSEValidator {
	t.Helper()
	alg, err := HMAC(HS256, key)
	require.NoError(t, err)

	registry := NewRegistry()
	require.NoError(t, registry.Add(alg))

	validate, err := NewJOSEValidator(registry.Resolve, RequireUnderstood())
	require.NoError(t, err)
	return validate
}

// spyAlgorithm records the order in which it is used.
type spyAlgorithm struct {
	inner  Algorithm
	events *[]string
}

func (s spyAlgorithm) Sign(ctx context.Context, in []byte) ([]byte, error) {
	*s.events = append(*s.events, "sign")
	return s.inner.Sign(ctx, in)
}

func (s spyAlgorithm) Verify(ctx context.Context, in, sig []byte) error {
	*s.events = append(*s.events, "verify")
	return s.inner.Verify(ctx, in, sig)
}

func TestKnownVector(t *testing.T) {
	validate := newHMACValidator(t, rfcKeyBytes(t))

	token, err := Produce([]byte(rfcPayload), rfcHeader(), validate, WithFormat(FormatRFCExample))
	require.NoError(t, err)
	assert.Equal(t, rfcToken, token)

	payload, err := Validate(rfcToken, validate)
	require.NoError(t, err)
	assert.Equal(t, rfcPayload, string(payload))
}

func TestKnownVectorCompactFormatDiffers(t *testing.T) {
	validate := newHMACValidator(t, rfcKeyBytes(t))

	token, err := Produce([]byte(rfcPayload), rfcHeader(), validate)
	require.NoError(t, err)

	h, _, _ := strings.Cut(token, ".")
	assert.Equal(t, EncodeSegment([]byte(`{"typ":"JWT","alg":"HS256"}`)), h)
	assert.NotEqual(t, rfcToken, token)

	payload, err := Validate(token, validate)
	require.NoError(t, err)
	assert.Equal(t, rfcPayload, string(payload))
}

func TestRoundTrip(t *testing.T) {
	validate := newHMACValidator(t, []byte(testSecretKey))

	payloads := [][]byte{
		[]byte(`{"sub":"1234567890","name":"John Doe"}`),
		[]byte("plain text payload"),
		{},
		{0x00, 0xff, 0xfe, '.', '='},
		[]byte(strings.Repeat("x", 4096)),
	}

	for _, p := range payloads {
		token, err := Produce(p, hs256Header(), validate)
		require.NoError(t, err)
		assert.Equal(t, 2, strings.Count(token, "."))
		assert.NotContains(t, token, "=")

		got, err := Validate(token, validate)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestTamperedTokensAreRejected(t *testing.T) {
	validate := newHMACValidator(t, []byte(testSecretKey))

	token, err := Produce([]byte(`{"iss":"joe","admin":false}`), rfcHeader(), validate)
	require.NoError(t, err)

	for i := 0; i < len(token); i++ {
		if token[i] == '.' {
			continue
		}
		replacement := byte('A')
		if token[i] == 'A' {
			replacement = 'B'
		}
		tampered := token[:i] + string(replacement) + token[i+1:]

		_, err := Validate(tampered, validate)
		assert.Error(t, err, "position %d", i)
	}
}

func TestWrongKeyIsSignatureMismatch(t *testing.T) {
	signer := newHMACValidator(t, []byte(testSecretKey))
	verifier := newHMACValidator(t, rfcKeyBytes(t))

	token, err := Produce([]byte("payload"), hs256Header(), signer)
	require.NoError(t, err)

	_, err = Validate(token, verifier)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
	assert.NotErrorIs(t, err, ErrAlgorithm)
	assert.Equal(t, ReasonSignatureMismatch, Reason(err))
}

func TestValidateErrors(t *testing.T) {
	validate := newHMACValidator(t, []byte(testSecretKey))
	good, err := Produce([]byte("payload"), hs256Header(), validate)
	require.NoError(t, err)
	h, p, s := splitToken(t, good)

	noAlg := EncodeSegment([]byte(`{"typ":"JWT"}`))

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"two segments", "a.b", ErrMalformedToken},
		{"four segments", "a.b.c.d", ErrMalformedToken},
		{"empty", "", ErrMalformedToken},
		{"undecodable header", "a.b.c", ErrDecode},
		{"padded header", h + "=." + p + "." + s, ErrDecode},
		{"header not json", EncodeSegment([]byte("not json")) + "." + p + "." + s, ErrInvalidHeaderJSON},
		{"header is array", EncodeSegment([]byte("[]")) + "." + p + "." + s, ErrInvalidHeaderJSON},
		{"duplicate header member", EncodeSegment([]byte(`{"alg":"HS256","alg":"HS256"}`)) + "." + p + "." + s, ErrInvalidHeaderJSON},
		{"missing alg", noAlg + "." + p + "." + s, ErrMissingAlgorithm},
		{"unknown alg", EncodeSegment([]byte(`{"alg":"HS999"}`)) + "." + p + "." + s, ErrUnsupportedAlgorithm},
		{"undecodable signature", h + "." + p + ".a", ErrDecode},
		{"empty signature", h + "." + p + ".", ErrSignatureMismatch},
		{"header not utf-8", EncodeSegment([]byte("{\"alg\":\"HS256\",\"x\":\"\xff\"}")) + "." + p + "." + s, ErrInvalidHeaderJSON},
		{"critical without support", EncodeSegment([]byte(`{"alg":"HS256","crit":["x"],"x":1}`)) + "." + p + "." + s, ErrCriticalParameterRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := Validate(tt.token, validate)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, payload)
		})
	}
}

func TestPayloadDecodedAfterVerification(t *testing.T) {
	key := []byte(testSecretKey)
	validate := newHMACValidator(t, key)

	// A signature over a payload segment that is not valid base64url.
	signingInput := EncodeSegment([]byte(`{"alg":"HS256"}`)) + ".a"
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(signingInput))
	token := signingInput + "." + EncodeSegment(mac.Sum(nil))

	_, err := Validate(token, validate)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestProduceErrors(t *testing.T) {
	validate := newHMACValidator(t, []byte(testSecretKey))

	_, err := Produce([]byte("p"), MustHeader(Member{Name: HeaderType, Value: "JWT"}), validate)
	assert.ErrorIs(t, err, ErrMissingAlgorithm)

	_, err = Produce([]byte("p"), Header{}, validate)
	assert.ErrorIs(t, err, ErrMissingAlgorithm)

	_, err = Produce([]byte("p"), MustHeader(), validate)
	assert.ErrorIs(t, err, ErrMissingAlgorithm)

	_, err = Produce([]byte("p"), MustHeader(Member{Name: HeaderAlgorithm, Value: ES256}), validate)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	_, err = Produce([]byte("p"), hs256Header(), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Validate("a.b.c", nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Produce([]byte("p"), hs256Header().With("bad", make(chan int)), validate)
	assert.ErrorIs(t, err, ErrInvalidHeaderJSON)

	_, err = Produce([]byte("p"), hs256Header().With("kid", "\xff"), validate)
	assert.ErrorIs(t, err, ErrInvalidHeaderJSON)
}

func TestCriticalHandlerRunsOnceBeforeVerification(t *testing.T) {
	inner, err := HMAC(HS256, []byte(testSecretKey))
	require.NoError(t, err)

	var events []string
	var seen []Header
	spy := spyAlgorithm{inner: inner, events: &events}

	crit := func(h Header) error {
		events = append(events, "crit")
		seen = append(seen, h)
		return RequireUnderstood("exp")(h)
	}
	validate, err := NewJOSEValidator(func(Header) (Algorithm, error) { return spy, nil }, crit)
	require.NoError(t, err)

	header := MustHeader(
		Member{Name: HeaderAlgorithm, Value: HS256},
		Member{Name: HeaderCritical, Value: []any{"exp"}},
		Member{Name: "exp", Value: 1363284000},
	)
	token, err := Produce([]byte("payload"), header, validate)
	require.NoError(t, err)
	assert.Equal(t, []string{"crit", "sign"}, events)

	events, seen = nil, nil
	_, err = Validate(token, validate)
	require.NoError(t, err)
	assert.Equal(t, []string{"crit", "verify"}, events)
	require.Len(t, seen, 1)
	assert.Equal(t, []string{"alg", "crit", "exp"}, seen[0].Names())
}

func TestCriticalRejectionSkipsVerification(t *testing.T) {
	inner, err := HMAC(HS256, []byte(testSecretKey))
	require.NoError(t, err)

	var events []string
	spy := spyAlgorithm{inner: inner, events: &events}
	errPolicy := errors.New("extension not supported")

	validate, err := NewJOSEValidator(
		func(Header) (Algorithm, error) { return spy, nil },
		func(Header) error { return errPolicy },
	)
	require.NoError(t, err)

	token := EncodeSegment([]byte(`{"alg":"HS256","crit":["x"],"x":true}`)) + ".e30.AAAA"
	_, err = Validate(token, validate)
	assert.ErrorIs(t, err, ErrCriticalParameterRejected)
	assert.ErrorIs(t, err, errPolicy)
	assert.Empty(t, events)
}

func TestContextCancellation(t *testing.T) {
	validate := newHMACValidator(t, []byte(testSecretKey))
	token, err := Produce([]byte("payload"), hs256Header(), validate)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = ProduceWithContext(ctx, []byte("payload"), hs256Header(), validate)
	assert.ErrorIs(t, err, ErrAlgorithm)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = ValidateWithContext(ctx, token, validate)
	assert.ErrorIs(t, err, ErrAlgorithm)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ReasonAlgorithm, Reason(err))
}

func TestVerifyReturnsToken(t *testing.T) {
	validate := newHMACValidator(t, []byte(testSecretKey))
	header := hs256Header().With(HeaderKeyID, "key-1")

	token, err := Produce([]byte("payload"), header, validate)
	require.NoError(t, err)

	got, err := Verify(context.Background(), token, validate)
	require.NoError(t, err)
	assert.Equal(t, token, got.Raw)
	assert.Equal(t, []byte("payload"), got.Payload)
	assert.Len(t, got.Signature, sha256.Size)

	kid, ok := got.Header.KeyID()
	assert.True(t, ok)
	assert.Equal(t, "key-1", kid)
}

func TestMaxTokenLength(t *testing.T) {
	validate := newHMACValidator(t, []byte(testSecretKey))
	token, err := Produce([]byte("payload"), hs256Header(), validate)
	require.NoError(t, err)

	_, err = Validate(token, validate, WithMaxTokenLength(len(token)))
	assert.NoError(t, err)

	_, err = Validate(token, validate, WithMaxTokenLength(len(token)-1))
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestParseUnverified(t *testing.T) {
	header, payload, err := ParseUnverified(rfcToken)
	require.NoError(t, err)
	assert.Equal(t, rfcPayload, string(payload))
	assert.Equal(t, []string{"typ", "alg"}, header.Names())

	// The signature is never looked at.
	header, _, err = ParseUnverified(rfcHeaderSeg + "." + rfcPayloadSeg + ".!!")
	require.NoError(t, err)
	alg, _ := header.Algorithm()
	assert.Equal(t, HS256, alg)

	_, _, err = ParseUnverified("a.b")
	assert.ErrorIs(t, err, ErrMalformedToken)
	_, _, err = ParseUnverified(rfcHeaderSeg + ".a.")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestSignFunc(t *testing.T) {
	key := []byte(testSecretKey)
	mac := SignFunc(func(_ context.Context, in []byte) ([]byte, error) {
		m := hmac.New(sha256.New, key)
		m.Write(in)
		return m.Sum(nil), nil
	})

	custom, err := NewJOSEValidator(func(Header) (Algorithm, error) { return mac, nil }, RequireUnderstood())
	require.NoError(t, err)
	builtin := newHMACValidator(t, key)

	fromFunc, err := Produce([]byte("payload"), hs256Header(), custom)
	require.NoError(t, err)
	fromBuiltin, err := Produce([]byte("payload"), hs256Header(), builtin)
	require.NoError(t, err)
	assert.Equal(t, fromBuiltin, fromFunc)

	_, err = Validate(fromBuiltin, custom)
	assert.NoError(t, err)

	h, p, _ := splitToken(t, fromBuiltin)
	_, err = Validate(h+"."+p+"."+EncodeSegment(make([]byte, sha256.Size)), custom)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestSignFuncErrorIsAlgorithmError(t *testing.T) {
	errHSM := errors.New("hsm unavailable")
	failing := SignFunc(func(context.Context, []byte) ([]byte, error) { return nil, errHSM })

	validate, err := NewJOSEValidator(func(Header) (Algorithm, error) { return failing, nil }, RequireUnderstood())
	require.NoError(t, err)

	_, err = Produce([]byte("payload"), hs256Header(), validate)
	assert.ErrorIs(t, err, ErrAlgorithm)
	assert.ErrorIs(t, err, errHSM)

	_, err = Validate(rfcToken, validate)
	assert.ErrorIs(t, err, ErrAlgorithm)
	assert.ErrorIs(t, err, errHSM)
}

func TestUnsecured(t *testing.T) {
	registry := NewRegistry(AllowUnsecured())
	require.NoError(t, registry.Register(None, Unsecured()))
	validate, err := NewJOSEValidator(registry.Resolve, RequireUnderstood())
	require.NoError(t, err)

	header := MustHeader(Member{Name: HeaderAlgorithm, Value: None})
	token, err := Produce([]byte("open"), header, validate)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(token, "."))

	payload, err := Validate(token, validate)
	require.NoError(t, err)
	assert.Equal(t, "open", string(payload))

	_, err = Validate(token+"AAAA", validate)
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	// The same token is refused by a registry that does not opt in.
	strict := newHMACValidator(t, []byte(testSecretKey))
	_, err = Validate(token, strict)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func splitToken(t *testing.T, token string) (string, string, string) {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	return parts[0], parts[1], parts[2]
}
