package web

type Options struct {
	// Called during Load to register routes, before the listener binds.
	Routes []func(r Router)
	// Optional additional middlewares.
	Middlewares []Handler
}

type Option func(*Options)

func WithRoutes(f func(r Router)) Option {
	return func(o *Options) { o.Routes = append(o.Routes, f) }
}

func WithMiddlewares(m ...Handler) Option {
	return func(o *Options) { o.Middlewares = append(o.Middlewares, m...) }
}
