package ports

// Renderer turns accumulated reply text into markup. Implementations are
// pure: the same input always yields the same output.
type Renderer interface {
	Render(text string) string
}

type RendererFunc func(text string) string

func (f RendererFunc) Render(text string) string {
	return f(text)
}
