package system

import (
	"image"
	"sync"

	"github.com/ivlev/sketchcast/internal/render"
)

// ImagePool recycles frame buffers per surface size so long exports do not
// allocate a fresh RGBA image for every frame.
type ImagePool struct {
	pools map[render.Size]*sync.Pool
	mu    sync.RWMutex
}

var globalPool = NewImagePool()

func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[render.Size]*sync.Pool)}
}

// GetImage takes a buffer of the given size from the shared pool.
func GetImage(size render.Size) *image.RGBA {
	return globalPool.Get(size)
}

// PutImage returns a buffer to the shared pool.
func PutImage(img *image.RGBA) {
	globalPool.Put(img)
}

func (p *ImagePool) Get(size render.Size) *image.RGBA {
	p.mu.RLock()
	pool, exists := p.pools[size]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		// Double check
		pool, exists = p.pools[size]
		if !exists {
			rect := image.Rect(0, 0, size.Width, size.Height)
			pool = &sync.Pool{
				New: func() interface{} {
					return image.NewRGBA(rect)
				},
			}
			p.pools[size] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*image.RGBA)
}

// Put ignores images of sizes the pool never handed out.
func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	size := render.Size{Width: img.Rect.Dx(), Height: img.Rect.Dy()}
	p.mu.RLock()
	pool, exists := p.pools[size]
	p.mu.RUnlock()

	if exists {
		pool.Put(img)
	}
}
