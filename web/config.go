package web

type Options struct {
	// Called during Configure to register routes.
	Routes []func(r Router)
	// Optional additional middlewares, installed after the built-in ones.
	Middlewares []Handler
}

type Option func(*Options)

func WithRoutes(f func(r Router)) Option {
	return func(o *Options) { o.Routes = append(o.Routes, f) }
}

func WithMiddlewares(m ...Handler) Option {
	return func(o *Options) { o.Middlewares = append(o.Middlewares, m...) }
}
