// Package services contains the application services that sit between the
// transport layer and the domain packages. AnalysisService orchestrates the
// full correlation pipeline (parse, match, enrich, mask, export) as a step
// runner operation; HealthService reports process health for the web server.
package services
