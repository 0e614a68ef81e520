// Package jws implements the JWS Compact Serialization of RFC 7515.
//
// A token is three base64url segments joined by '.':
//
//	BASE64URL(header) '.' BASE64URL(payload) '.' BASE64URL(signature)
//
// Produce signs a payload under a JOSE header and Validate checks a token
// and returns its payload. Both take a JOSEValidator, which enforces the
// header rules ("alg" required, "crit" handled, application policies) and
// picks the Algorithm that signs or verifies:
//
//	hs256, err := jws.HMAC(jws.HS256, key)
//	if err != nil {
//		return err
//	}
//	registry := jws.NewRegistry()
//	if err := registry.Add(hs256); err != nil {
//		return err
//	}
//	validate, err := jws.NewJOSEValidator(registry.Resolve, jws.RequireUnderstood())
//	if err != nil {
//		return err
//	}
//
//	header := jws.MustHeader(jws.Member{Name: jws.HeaderAlgorithm, Value: jws.HS256})
//	token, err := jws.Produce(payload, header, validate)
//	...
//	payload, err := jws.Validate(token, validate)
//
// Every failure matches one of the package's sentinel errors with
// errors.Is, and Reason maps it to a label suitable for logs and metrics.
// Processor bundles a validator with configuration, structured logging,
// Prometheus metrics, nonce replay protection and a signing rate limit.
package jws
