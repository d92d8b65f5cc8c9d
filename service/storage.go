package service

import (
	"compress/flate"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	gstorage "cloud.google.com/go/storage"
	"github.com/airbusgeo/geocube/interface/storage"
	"github.com/airbusgeo/geocube/interface/storage/uri"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mholt/archiver"
)

// ErrFileNotFound is an error returned by SaveFile
type ErrFileNotFound struct {
	File string
}

func (e ErrFileNotFound) Error() string {
	return fmt.Sprintf("File not found: %s", e.File)
}
func (e ErrFileNotFound) Kind() ErrorKind { return KindData }

func isErrNotFound(err error) bool {
	var epath *os.PathError
	return errors.Is(err, gstorage.ErrObjectNotExist) ||
		(errors.As(err, &epath) && os.IsNotExist(epath))
}

// Storage is a service to export the output files
type Storage interface {
	// SaveFile persists the local file into the storage and returns its uri
	// Raise ErrFileNotFound
	SaveFile(ctx context.Context, localPath string) (string, error)
}

// S3Options configures the s3:// storage. Empty fields fall back to the default AWS configuration
type S3Options struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string
}

// NewStorageStrategy creates a Storage given the uri:
// a local directory (with or without file://), gs://bucket/prefix or s3://bucket/prefix
func NewStorageStrategy(ctx context.Context, storageURI string, s3Opts S3Options) (Storage, error) {
	u, err := uri.ParseUri(storageURI)
	if err != nil {
		return nil, ErrInvalidInput{Reason: fmt.Sprintf("storage uri: %v", err)}
	}
	switch u.Protocol() {
	case "", "file":
		dir := strings.TrimPrefix(storageURI, "file://")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("NewStorageStrategy.MkdirAll: %w", err)
		}
		return &LocalStorage{Dir: dir}, nil
	case "gs":
		storageClient, err := u.NewStorageStrategy(ctx)
		if err != nil {
			return nil, fmt.Errorf("NewStorageStrategy: %w", err)
		}
		return &StorageStrategy{storage: storageClient, uri: u}, nil
	case "s3":
		opts := []func(*config.LoadOptions) error{}
		if s3Opts.AccessKeyID != "" {
			opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s3Opts.AccessKeyID, s3Opts.SecretAccessKey, "")))
		}
		if s3Opts.Region != "" {
			opts = append(opts, config.WithRegion(s3Opts.Region))
		}
		cfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("NewStorageStrategy.s3 LoadDefaultConfig: %w", err)
		}
		client := s3.NewFromConfig(cfg, func(o *s3.Options) {
			if s3Opts.Endpoint != "" {
				o.BaseEndpoint = aws.String(s3Opts.Endpoint)
				o.UsePathStyle = true
			}
		})
		uploader := manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = 10 * 1024 * 1024 // 10MB per part
		})
		return &S3Storage{uploader: uploader, bucket: u.Bucket(), prefix: strings.Trim(u.Path(), "/")}, nil
	}
	return nil, ErrInvalidInput{Reason: fmt.Sprintf("unsupported storage uri: %s", storageURI)}
}

func openLocal(localPath string) (*os.File, error) {
	f, err := os.Open(localPath)
	if err != nil {
		if isErrNotFound(err) {
			return nil, ErrFileNotFound{File: localPath}
		}
		return nil, fmt.Errorf("Open: %w", err)
	}
	return f, nil
}

// LocalStorage copies the files into a directory
type LocalStorage struct {
	Dir string
}

// SaveFile implements Storage
func (ls *LocalStorage) SaveFile(ctx context.Context, localPath string) (string, error) {
	src, err := openLocal(localPath)
	if err != nil {
		return "", fmt.Errorf("SaveFile.%w", err)
	}
	defer src.Close()

	dstPath := filepath.Join(ls.Dir, filepath.Base(localPath))
	if abs, err := filepath.Abs(localPath); err == nil {
		if absDst, err := filepath.Abs(dstPath); err == nil && abs == absDst {
			return dstPath, nil
		}
	}
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("SaveFile.Create: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", MakeTemporary(fmt.Errorf("SaveFile.Copy: %w", err))
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("SaveFile.Close: %w", err)
	}
	return dstPath, nil
}

// StorageStrategy uploads the files with a geocube storage strategy (gs://)
type StorageStrategy struct {
	storage storage.Strategy
	uri     uri.DefaultUri
}

// SaveFile implements Storage
func (ss *StorageStrategy) SaveFile(ctx context.Context, localPath string) (string, error) {
	src, err := openLocal(localPath)
	if err != nil {
		return "", fmt.Errorf("SaveFile.%w", err)
	}
	defer src.Close()

	dst := ss.getPath(filepath.Base(localPath))
	if err := ss.storage.UploadFile(ctx, dst, src); err != nil {
		return "", MakeTemporary(fmt.Errorf("SaveFile.UploadFile to %s: %w", dst, err))
	}
	return dst, nil
}

// getPath returns the uri of the file in the storage
func (ss *StorageStrategy) getPath(filename string) string {
	u := ss.uri.String()
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u + filename
}

// S3Storage uploads the files to an S3 bucket
type S3Storage struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// SaveFile implements Storage
func (ss *S3Storage) SaveFile(ctx context.Context, localPath string) (string, error) {
	src, err := openLocal(localPath)
	if err != nil {
		return "", fmt.Errorf("SaveFile.%w", err)
	}
	defer src.Close()

	key := path.Join(ss.prefix, filepath.Base(localPath))
	if _, err := ss.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(ss.bucket),
		Key:    aws.String(key),
		Body:   src,
	}); err != nil {
		return "", MakeTemporary(fmt.Errorf("SaveFile.Upload s3://%s/%s: %w", ss.bucket, key, err))
	}
	return "s3://" + path.Join(ss.bucket, key), nil
}

// Archive zips the files into dst
func Archive(files []string, dst string) error {
	zipper := archiver.NewZip()
	zipper.CompressionLevel = flate.BestSpeed
	zipper.OverwriteExisting = true
	if err := zipper.Archive(files, dst); err != nil {
		return fmt.Errorf("Archive: %w", err)
	}
	return nil
}
