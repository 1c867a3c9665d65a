package sysmem_test

import (
	"errors"
	"fmt"
	"log"

	"github.com/hupe1980/sysmem"
)

// Example demonstrates creating, filling and destroying a chunk.
func Example() {
	pool, err := sysmem.New(1 << 20)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	h, err := pool.CreateChunk(4096, true)
	if err != nil {
		log.Fatal(err)
	}

	data, _ := h.Bytes()
	copy(data, "hello")

	fmt.Println(pool.UsedBytes())
	_ = h.Destroy()
	fmt.Println(pool.UsedBytes())
	// Output:
	// 4096
	// 0
}

// Example_capacity demonstrates a request failing on a full pool.
func Example_capacity() {
	pool, err := sysmem.New(1024, sysmem.WithActiveReclaim(false))
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	h, _ := pool.CreateChunk(600, false)
	defer h.Destroy()

	_, err = pool.CreateChunk(600, false)
	fmt.Println(errors.Is(err, sysmem.ErrCapacityExceeded))
	// Output: true
}

// Example_resizeBuffer demonstrates how resizing keeps the buffer window.
func Example_resizeBuffer() {
	pool, err := sysmem.New(1024)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	h, _ := pool.CreateBuffer(100, false)
	b, _ := h.Buffer()
	_ = b.SetPosition(80)

	h, _ = pool.ResizeBuffer(h, 50)
	b, _ = h.Buffer()
	fmt.Println(b.Position(), b.Limit())

	h, _ = pool.ResizeBuffer(h, 150)
	b, _ = h.Buffer()
	fmt.Println(b.Position(), b.Limit())
	_ = h.Destroy()
	// Output:
	// 0 50
	// 0 50
}
