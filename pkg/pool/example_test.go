package pool_test

import (
	"context"
	"fmt"

	"github.com/BobKerns/better-future/pkg/future"
	"github.com/BobKerns/better-future/pkg/pool"
)

// Example demonstrates bounding concurrent work with a pool.
func Example() {
	p := pool.New(2)

	squares := make([]*future.Future[int], 4)
	for i := range squares {
		i := i
		squares[i] = pool.AddFunc(p, func(c *future.Context[int]) (int, error) {
			return i * i, nil
		})
	}

	for _, f := range squares {
		v, err := f.Wait(context.Background())
		if err != nil {
			fmt.Println("failed:", err)
			return
		}
		fmt.Println(v)
	}

	// Output:
	// 0
	// 1
	// 4
	// 9
}

// Example_existingFuture demonstrates adding an already-built future as a
// pool task.
func Example_existingFuture() {
	p := pool.New(1)

	f := future.NewFunc(func() (string, error) {
		return "ran under the pool", nil
	})
	p.Add(f.AsTask())

	v, _ := f.Wait(context.Background())
	fmt.Println(v)

	// Output:
	// ran under the pool
}
