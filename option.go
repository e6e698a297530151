package veritree

// Options configures tree behavior.
type Options struct {
	arity            int     // max children per node
	alpha            float64 // minimum non-root fill as a fraction of arity
	cacheSize        int     // decoded-node cache capacity, in nodes
	keyOrderRequired bool    // assert strictly ascending keys on every persisted node
	hasher           Hasher
	logger           Logger
}

// DefaultOptions returns safe default configuration.
func DefaultOptions() Options {
	return Options{
		arity:     32,
		alpha:     0.25,
		cacheSize: 1024,
		hasher:    XXHasher,
		logger:    DiscardLogger{},
	}
}

// maxDegree is the largest size a node may hold after a put settles.
func (o *Options) maxDegree() int {
	return o.arity
}

// minDegree is the smallest size a non-root node may hold. Nothing shrinks
// nodes (there is no delete), so this is preserved by construction.
func (o *Options) minDegree() int {
	return int(o.alpha * float64(o.arity))
}

func (o *Options) validate() error {
	if o.arity < 4 {
		return ErrInvalidArity
	}
	if o.alpha <= 0 || o.alpha > 0.5 {
		return ErrInvalidAlpha
	}
	return nil
}

// Option configures tree options using the functional options pattern.
type Option func(*Options)

// WithArity sets the maximum number of children per node. Must be >= 4.
func WithArity(arity int) Option {
	return func(opts *Options) {
		opts.arity = arity
	}
}

// WithAlpha sets the minimum non-root fill ratio. Must be in (0, 0.5].
func WithAlpha(alpha float64) Option {
	return func(opts *Options) {
		opts.alpha = alpha
	}
}

// WithCacheSize sets the capacity of the decoded-node cache, in nodes.
func WithCacheSize(size int) Option {
	return func(opts *Options) {
		opts.cacheSize = size
	}
}

// WithKeyOrderAssertions makes the engine check every persisted node for
// strictly ascending keys. A violation fails the operation. This is a
// debugging aid: ordering is the client's job, and in production the engine
// never consults an ordering predicate.
func WithKeyOrderAssertions() Option {
	return func(opts *Options) {
		opts.keyOrderRequired = true
	}
}

// WithHasher replaces the default xxhash-based hasher.
func WithHasher(hasher Hasher) Option {
	return func(opts *Options) {
		opts.hasher = hasher
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger Logger) Option {
	return func(opts *Options) {
		opts.logger = logger
	}
}
