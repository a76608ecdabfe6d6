package s3pi_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/Kazzer/s3pi"
	"github.com/Kazzer/s3pi/config"
	"github.com/Kazzer/s3pi/objectstore"
)

func Example() {
	dir, err := os.MkdirTemp("", "dist")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, "foo-1.0.tar.gz"), []byte("sdist"), 0o644); err != nil {
		log.Fatal(err)
	}

	cfg := &config.Config{
		Bucket:      "my-packages",
		Prefix:      "simple/",
		Upload:      true,
		Concurrency: 2,
	}

	// An in-memory store; production code uses objectstore/s3.New.
	store := objectstore.NewMemoryStore()

	pub, err := s3pi.New(cfg, store)
	if err != nil {
		log.Fatal(err)
	}

	summary, err := pub.Run(context.Background(), dir)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("created=%d updated=%d skipped=%d\n", summary.Created, summary.Updated, summary.Skipped)
	// Output: created=3 updated=0 skipped=0
}
