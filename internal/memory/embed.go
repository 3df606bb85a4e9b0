package memory

import (
	"encoding/binary"
	"math"
	"regexp"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// DefaultDimensions: размерность bag-of-words эмбеддинга.
const DefaultDimensions = 256

var wordRe = regexp.MustCompile(`\w+`)

// Embed строит нормированный вектор: каждый токен хешируется blake2b (4 байта)
// в одну из dims корзин. Детерминирован, не требует модели.
func Embed(text string, dims int) []float64 {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	vec := make([]float64, dims)
	for _, tok := range wordRe.FindAllString(strings.ToLower(text), -1) {
		h, _ := blake2b.New(4, nil) // ошибка только для size вне 1..64 или длинного ключа
		h.Write([]byte(tok))
		idx := binary.LittleEndian.Uint32(h.Sum(nil)) % uint32(dims)
		vec[idx]++
	}
	return normalize(vec)
}

func normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
	return v
}

// cosine для уже нормированных векторов это просто скалярное произведение.
func cosine(a, b []float64) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}
