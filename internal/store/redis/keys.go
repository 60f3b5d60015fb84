package redis

const (
	// KeyPrefixResult is the prefix for cached aggregated results.
	KeyPrefixResult = "coverage:result:"
	// KeyPrefixProviderIndex is the prefix for the per-provider set of
	// cached fingerprints, used for targeted invalidation.
	KeyPrefixProviderIndex = "coverage:provider:"
	// KeyCallLog is the list of recent provider call records.
	KeyCallLog = "coverage:calllog"
)

// ResultKey returns the cache key for a query fingerprint.
func ResultKey(fingerprint string) string {
	return KeyPrefixResult + fingerprint
}

// ProviderIndexKey returns the key of the fingerprint set for a provider.
func ProviderIndexKey(providerID string) string {
	return KeyPrefixProviderIndex + providerID + ":fingerprints"
}
