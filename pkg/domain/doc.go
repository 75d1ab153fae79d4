// Package domain contains the core entities of the privacy scanning
// pipeline: identity tokens, discovery candidates, exposure clusters, scan
// reports and takedown notices. These types represent business concepts and
// are intentionally free of infrastructure concerns so they can be shared
// across packages.
package domain
