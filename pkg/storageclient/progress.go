package storageclient

import "io"

// ProgressFunc получает прирост переданных байт по части partNumber. Вызывается из
// горутин передачи параллельно, реализация должна быть потокобезопасной.
type ProgressFunc func(partNumber int, n int64)

type progressReader struct {
	inner io.Reader
	part  int
	fn    ProgressFunc
}

func newProgressReader(inner io.Reader, part int, fn ProgressFunc) io.Reader {
	if fn == nil || inner == nil {
		return inner
	}

	return &progressReader{
		inner: inner,
		part:  part,
		fn:    fn,
	}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.inner.Read(b)
	if n > 0 {
		p.fn(p.part, int64(n))
	}
	return n, err
}
