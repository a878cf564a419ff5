package application

// Pool は短命エンティティの再利用アロケータです。
// 障害物・パワーアップは数百ms単位で生成と破棄を繰り返すため、
// 毎tickの割り当てによるGC起因のフレーム落ちを避けるために使います。
// 空きリストはmaxSizeで制限され、あふれた分は捨ててGCに任せます。
type Pool[T comparable] struct {
	construct func() T
	reset     func(T)
	maxSize   int

	active      map[T]struct{}
	free        []T
	constructed int
}

func NewPool[T comparable](construct func() T, reset func(T), maxSize int) *Pool[T] {
	if maxSize < 0 {
		maxSize = 0
	}
	return &Pool[T]{
		construct: construct,
		reset:     reset,
		maxSize:   maxSize,
		active:    make(map[T]struct{}),
	}
}

// Acquire は再利用可能なインスタンスがあればリセットして返し、なければ新規に構築します。
func (p *Pool[T]) Acquire() T {
	var v T
	if n := len(p.free); n > 0 {
		v = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		v = p.construct()
		p.constructed++
	}
	p.reset(v)
	p.active[v] = struct{}{}
	return v
}

// Release はアクティブなインスタンスをプールへ戻します。
// アクティブでない値に対しては何もしません（二重解放は無害）。
func (p *Pool[T]) Release(v T) {
	if _, ok := p.active[v]; !ok {
		return
	}
	delete(p.active, v)
	if len(p.free) < p.maxSize {
		p.reset(v)
		p.free = append(p.free, v)
	}
}

// ReleaseAll はアクティブなインスタンスを一括で解放します。
func (p *Pool[T]) ReleaseAll() {
	for v := range p.active {
		delete(p.active, v)
		if len(p.free) < p.maxSize {
			p.reset(v)
			p.free = append(p.free, v)
		}
	}
}

func (p *Pool[T]) NumActive() int {
	return len(p.active)
}

func (p *Pool[T]) NumAvailable() int {
	return len(p.free)
}

func (p *Pool[T]) TotalConstructed() int {
	return p.constructed
}
