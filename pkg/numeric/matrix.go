package numeric

import (
	"context"
	"fmt"

	"github.com/qcserestipy/gohpc/pkg/reduce"
	"github.com/qcserestipy/gohpc/pkg/workerpool"
)

// Matrix is a dense row-major integer matrix.
type Matrix [][]int64

// Rows returns the number of rows.
func (m Matrix) Rows() int { return len(m) }

// Cols returns the length of the first row.
func (m Matrix) Cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Validate checks that m is non-empty and rectangular.
func (m Matrix) Validate() error {
	if m.Rows() == 0 || m.Cols() == 0 {
		return ErrEmptyMatrix
	}
	for i, row := range m {
		if len(row) != m.Cols() {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrNotRectangular, i, len(row), m.Cols())
		}
	}
	return nil
}

// Equal reports whether m and o have the same shape and entries.
func (m Matrix) Equal(o Matrix) bool {
	if len(m) != len(o) {
		return false
	}
	for i := range m {
		if len(m[i]) != len(o[i]) {
			return false
		}
		for j := range m[i] {
			if m[i][j] != o[i][j] {
				return false
			}
		}
	}
	return true
}

// NewMatrix allocates a zeroed rows×cols matrix.
func NewMatrix(rows, cols int) Matrix {
	m := make(Matrix, rows)
	for i := range m {
		m[i] = make([]int64, cols)
	}
	return m
}

// CheckMultiplication validates both operands and their inner dimensions.
func CheckMultiplication(a, b Matrix) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("left operand: %w", err)
	}
	if err := b.Validate(); err != nil {
		return fmt.Errorf("right operand: %w", err)
	}
	if a.Cols() != b.Rows() {
		return fmt.Errorf("%w: %dx%d by %dx%d", ErrDimensionMismatch, a.Rows(), a.Cols(), b.Rows(), b.Cols())
	}
	return nil
}

// multiplyRows fills rows [c.Start, c.End) of out with a×b. Only those rows
// of out are written.
func multiplyRows(a, b, out Matrix, c reduce.Chunk) {
	cols, common := b.Cols(), a.Cols()
	for i := c.Start; i < c.End; i++ {
		row := out[i]
		for j := 0; j < cols; j++ {
			var sum int64
			for k := 0; k < common; k++ {
				sum += a[i][k] * b[k][j]
			}
			row[j] = sum
		}
	}
}

// MultiplySequential computes a×b on the calling goroutine.
func MultiplySequential(a, b Matrix) (Matrix, error) {
	if err := CheckMultiplication(a, b); err != nil {
		return nil, err
	}
	out := NewMatrix(a.Rows(), b.Cols())
	multiplyRows(a, b, out, reduce.Chunk{Start: 0, End: a.Rows()})
	return out, nil
}

// MultiplyPool computes a×b on the fixed worker pool, one task per chunk
// of result rows.
func MultiplyPool(ctx context.Context, a, b Matrix, p Params) (Matrix, error) {
	if err := CheckMultiplication(a, b); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	chunks, err := p.chunks(0, a.Rows())
	if err != nil {
		return nil, err
	}
	p.logDistribution("matrix", a.Rows(), chunks)

	out := NewMatrix(a.Rows(), b.Cols())
	pool := workerpool.New[reduce.Chunk, struct{}](
		workerpool.WithWorkers(p.workers()),
		workerpool.WithLogger(p.logger()),
	)
	err = pool.ForEach(ctx, chunks, func(_ context.Context, c reduce.Chunk) {
		multiplyRows(a, b, out, c)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MultiplyMW computes a×b on the master/worker engine. Chunks cover
// disjoint row ranges of the result, so each unit writes its rows without
// synchronisation. Chunking by column would break this: two units would
// share every row slice.
func MultiplyMW(ctx context.Context, a, b Matrix, p Params) (Matrix, error) {
	if err := CheckMultiplication(a, b); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	chunks, err := p.chunks(0, a.Rows())
	if err != nil {
		return nil, err
	}
	p.logDistribution("matrix", a.Rows(), chunks)

	out := NewMatrix(a.Rows(), b.Cols())
	err = reduce.Run(ctx, p.workers(), func(s reduce.Submitter) {
		reduce.Disjoint(s, chunks, func(c reduce.Chunk) {
			multiplyRows(a, b, out, c)
		})
	}, p.masterOpts("matrix")...)
	if err != nil {
		return nil, err
	}
	return out, nil
}
