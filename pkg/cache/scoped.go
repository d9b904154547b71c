package cache

// ScopedKeyer wraps a Keyer with a prefix so that entries written under one
// credential are invisible to runs using another:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "token:"+Fingerprint(token)+":")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// HTTPKey generates a prefixed key for HTTP response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// MetadataKey generates a prefixed key for repository metadata.
func (k *ScopedKeyer) MetadataKey(owner, project string, opts MetadataKeyOpts) string {
	return k.prefix + k.inner.MetadataKey(owner, project, opts)
}
