// Package dataverse is a small client for the Dataverse Web API (OData v4)
// covering the publisher and solution tables.
//
// Requests are authenticated with an OAuth2 bearer token, rate limited on
// the client side and traced with OpenTelemetry. Query options are built
// with Query, which validates field names and escapes literals, so caller
// input never reaches a URL unquoted.
//
//	c, err := dataverse.NewFromConfig(ctx, cfg.Dataverse, logger)
//	sol, err := c.SolutionByUniqueName(ctx, "contoso_core")
//	if errors.Is(err, dataverse.ErrNotFound) {
//		// ...
//	}
package dataverse
