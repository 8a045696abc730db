package types

// LoadStatus classifies the result of loading a listing page.
type LoadStatus int

const (
	// LoadOK means the page loaded and listings are present.
	LoadOK LoadStatus = iota
	// LoadNoListings means the page explicitly shows no games for this
	// item. Informational, not an error.
	LoadNoListings
	// LoadStructuralError means the page loaded but the expected
	// listing markers are absent. Warning, item skipped.
	LoadStructuralError
	// LoadTransportError means the page never loaded.
	LoadTransportError
)

func (s LoadStatus) String() string {
	switch s {
	case LoadOK:
		return "ok"
	case LoadNoListings:
		return "no_listings"
	case LoadStructuralError:
		return "structural_error"
	case LoadTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// ListingResult is the outcome of loading one listing page: its status
// plus the order-preserving, page-deduplicated candidate links.
type ListingResult struct {
	Status LoadStatus
	Links  []GameLink
	Err    error
}
