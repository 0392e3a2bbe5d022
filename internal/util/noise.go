package util

import (
	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// Noise2D возвращает значение шума в диапазоне [0, 1]
type Noise2D interface {
	Noise2D(x, y float64) float64
}

// PerlinNoise обёртка над генератором шума Перлина
type PerlinNoise struct {
	p *perlin.Perlin
}

// NewPerlinNoise создаёт генератор шума Перлина с указанным сидом
func NewPerlinNoise(seed int64) *PerlinNoise {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &PerlinNoise{p: perlin.NewPerlin(alpha, beta, n, seed)}
}

// Noise2D возвращает значение шума Перлина для указанных координат (от 0 до 1)
func (pn *PerlinNoise) Noise2D(x, y float64) float64 {
	// Получаем значение шума (от -1 до 1) и переводим в [0, 1]
	return Clamp01((pn.p.Noise2D(x, y) + 1.0) / 2.0)
}

// SimplexNoise обёртка над OpenSimplex
type SimplexNoise struct {
	n opensimplex.Noise
}

// NewSimplexNoise создаёт генератор OpenSimplex с указанным сидом
func NewSimplexNoise(seed int64) *SimplexNoise {
	return &SimplexNoise{n: opensimplex.New(seed)}
}

// Noise2D возвращает значение шума OpenSimplex (от 0 до 1)
func (sn *SimplexNoise) Noise2D(x, y float64) float64 {
	return Clamp01((sn.n.Eval2(x, y) + 1.0) / 2.0)
}

// Clamp01 ограничивает значение диапазоном [0, 1]
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
