package service

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/geocube/interface/storage/uri"
)

func TestStorageStrategyPath(t *testing.T) {
	for _, storageURI := range []string{"gs://bucket/exports", "gs://bucket/exports/"} {
		u, err := uri.ParseUri(storageURI)
		if err != nil {
			t.Fatal(err)
		}
		ss := StorageStrategy{uri: u}
		if p := ss.getPath("tokyo_B04.tif"); p != "gs://bucket/exports/tokyo_B04.tif" {
			t.Errorf("%s: unexpected path %s", storageURI, p)
		}
	}
}

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	localdir, distdir := t.TempDir(), t.TempDir()

	src := filepath.Join(localdir, "sentinel2_2023-08-14_B04.tif")
	if err := os.WriteFile(src, []byte("test"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, uri := range []string{filepath.Join(distdir, "a"), "file://" + filepath.Join(distdir, "b")} {
		storage, err := NewStorageStrategy(ctx, uri, S3Options{})
		if err != nil {
			t.Fatal(err)
		}
		dst, err := storage.SaveFile(ctx, src)
		if err != nil {
			t.Fatal(err)
		}
		if b, err := os.ReadFile(dst); err != nil || string(b) != "test" {
			t.Errorf("%s: expecting 'test', got '%s' (%v)", dst, b, err)
		}

		_, err = storage.SaveFile(ctx, filepath.Join(localdir, "missing.tif"))
		var notFound ErrFileNotFound
		if !errors.As(err, &notFound) {
			t.Errorf("expecting ErrFileNotFound, got %v", err)
		}
	}

	// Saving into the same directory is a no-op
	storage, err := NewStorageStrategy(ctx, localdir, S3Options{})
	if err != nil {
		t.Fatal(err)
	}
	if dst, err := storage.SaveFile(ctx, src); err != nil || dst != src {
		t.Errorf("expecting %s, got %s (%v)", src, dst, err)
	}

	if _, err := NewStorageStrategy(ctx, "ftp://host/dir", S3Options{}); Kind(err) != KindInput {
		t.Errorf("expecting %s, got %v", KindInput, err)
	}
}

func TestArchive(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for _, name := range []string{"p_B04.tif", "p_B08.tif"} {
		f := filepath.Join(dir, name)
		if err := os.WriteFile(f, []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
		files = append(files, f)
	}
	dst := filepath.Join(dir, "p.zip")
	if err := Archive(files, dst); err != nil {
		t.Fatal(err)
	}
	// Overwrite
	if err := Archive(files, dst); err != nil {
		t.Fatal(err)
	}
	r, err := zip.OpenReader(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if len(r.File) != 2 {
		t.Errorf("expecting 2 files, got %d", len(r.File))
	}
}
