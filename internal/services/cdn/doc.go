// Package cdn invalidates Cloud CDN cache entries for re-packaged titles.
package cdn
