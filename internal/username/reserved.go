package username

// DefaultReserved returns the baseline set of usernames that may never be
// claimed or suggested, regardless of availability.
func DefaultReserved() map[string]struct{} {
	return map[string]struct{}{
		"admin":     {},
		"root":      {},
		"system":    {},
		"support":   {},
		"moderator": {},
		"owner":     {},
		"keepsake":  {},
		"api":       {},
		"help":      {},
		"undefined": {},
		"null":      {},
	}
}
