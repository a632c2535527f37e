// Package webhook implements the catch-all inspection endpoint with optional
// HMAC-SHA256 verification.
//
// Every request, whatever its path or method, is captured, rendered into a
// report for the operator and answered with a status derived from the
// signature check. Nothing is stored and nothing is forwarded.
//
// # Signature Model
//
// - The sender may set X-Super-Signature: <algorithm>=<hex digest>
// - The value is split on the first '='; the algorithm tag is shown but not checked
// - HMAC-SHA256 is computed over the raw body bytes with the configured secret
// - Digests are compared with crypto/subtle (constant-time comparison)
// - A missing header is not an error: verification is skipped
//
// # Status Codes
//
// - 200 OK: signature verified, or no signature header sent
// - 400 Bad Request: header not printable text, or no '=' separator
// - 401 Unauthorized: digest mismatch
// - 413 Payload Too Large: body exceeds max_body_size (no report is emitted)
//
// # Request Flow
//
//  1. Any method on any path arrives at the chi router
//  2. Body read up to max_body_size
//  3. Snapshot captured (method, target, headers, raw body)
//  4. Body rendered for display (json, text, binary or empty)
//  5. Signature verified against the raw body
//  6. Report emitted to the sink in a single write
//  7. Status and a small JSON body returned
//
// # Example Usage
//
//	verifier, err := webhook.NewVerifier([]byte(secret))
//	if err != nil {
//		log.Fatal(err)
//	}
//	reporter := inspect.NewReporter(os.Stdout, "auto")
//	handler := webhook.NewHandler(verifier, reporter, 2<<20, logger)
//	server := webhook.New(webhook.Config{Listen: "0.0.0.0:3000"}, handler, webhook.NewMetrics(), logger)
//	if err := server.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package webhook
