// Package storage saves finished photos to the configured output location.
package storage

import (
	"context"
	"fmt"
)

type Type string

const (
	TypeDisk Type = "disk"
	TypeS3   Type = "s3"
)

// Backend writes a local image file under name
type Backend interface {
	WriteImage(ctx context.Context, src, name string) (string, error)
}

// Config selects and configures a backend
type Config struct {
	Type Type
	// Dir is the output directory for disk storage
	Dir string

	Bucket   string
	Region   string
	Prefix   string
	Endpoint string
}

// New creates the backend named by config.Type
func New(config Config) (Backend, error) {
	switch config.Type {
	case TypeDisk, "":
		return NewDiskStorage(config.Dir)
	case TypeS3:
		return NewS3Storage(config)
	}
	return nil, fmt.Errorf("unknown storage type %q", config.Type)
}
