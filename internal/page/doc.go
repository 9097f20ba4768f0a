/*
Package page implements the isolated page session that pooled sandboxes wrap.

# Overview

A Page is one disposable, stateful automation context: it can navigate to a
URL, expose the fetched document to scripts, evaluate JavaScript against it,
and produce a serialized snapshot. Each page owns a private goja VM with an
isolated global scope; fetched HTML is sanitized before scripts can see it.

# Security Model

Page scripts cannot:
  - Access filesystem or network directly
  - Spawn processes or reach Node.js APIs
  - Run past the caller's deadline (VM interrupt on context cancellation)

# Usage Example

	engine := page.NewEngine(logger)
	pg, err := engine.Create(ctx, page.DefaultOptions())
	if err != nil {
		return err
	}
	defer engine.Destroy(ctx, pg)

	if err := pg.Navigate(ctx, "https://example.com"); err != nil {
		return err
	}
	val, err := pg.Evaluate(ctx, "page.title()")
*/
package page
