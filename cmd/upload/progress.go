package main

import (
	"io"

	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"
)

// progressBar показывает общий прогресс по всем частям сразу.
type progressBar struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

func newProgressBar(out io.Writer, total int64, name string) *progressBar {
	p := mpb.New(mpb.WithWidth(60), mpb.WithOutput(out))
	bar := p.AddBar(total,
		mpb.PrependDecorators(
			decor.CountersKibiByte("% .2f / % .2f "),
		),
		mpb.AppendDecorators(
			decor.Name(name, decor.WC{W: 20, C: decor.DidentRight}),
			decor.Name(" | "),
			// Байты приходят колбэками из горутин передачи, а не через ProxyReader,
			// поэтому скорость считается как среднее с начала загрузки.
			decor.AverageSpeed(decor.UnitKiB, "% .2f"),
		),
	)
	return &progressBar{p: p, bar: bar}
}

// Add вызывается из горутин передачи; mpb.Bar потокобезопасен.
func (b *progressBar) Add(_ int, n int64) {
	b.bar.IncrInt64(n)
}

// Finish дорисовывает полосу. При сбое полоса останавливается на достигнутом.
func (b *progressBar) Finish(ok bool) {
	if ok {
		b.bar.SetTotal(-1, true)
	} else {
		b.bar.Abort(false)
	}
	b.p.Wait()
}
