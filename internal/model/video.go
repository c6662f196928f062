// Package model contains the records shared across packages.
package model

import (
	"time"
)

// Status is the processing stage of a video. The gateway only ever writes
// StatusUploaded; later values are set by the processing pipeline and are
// treated as opaque strings.
type Status string

const (
	StatusUploaded   Status = "UPLOADED"
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusDone       Status = "DONE"
)

// StorageScheme prefixes every object locator stored on a record.
const StorageScheme = "s3://"

// Video is the metadata record persisted for each upload. The JSON and
// DynamoDB attribute names match the documents the processing service reads.
type Video struct {
	ID        string    `json:"id_video" dynamodbav:"id_video"`
	Title     string    `json:"titulo" dynamodbav:"titulo"`
	Author    string    `json:"autor" dynamodbav:"autor"`
	Status    Status    `json:"status" dynamodbav:"status"`
	FilePath  string    `json:"file_path" dynamodbav:"file_path"`
	CreatedAt time.Time `json:"data_criacao" dynamodbav:"data_criacao"`
	UpdatedAt time.Time `json:"data_upload" dynamodbav:"data_upload"`
	// Owner fields are copied from the resolved identity at creation.
	OwnerID       string `json:"id,omitempty" dynamodbav:"id,omitempty"`
	OwnerUsername string `json:"username,omitempty" dynamodbav:"username,omitempty"`
	OwnerEmail    string `json:"email,omitempty" dynamodbav:"email,omitempty"`
	// ZipPath and ZipKey are filled in by the processing service.
	ZipPath string `json:"zip_path,omitempty" dynamodbav:"zip_path,omitempty"`
	ZipKey  string `json:"s3_key_zip,omitempty" dynamodbav:"s3_key_zip,omitempty"`
}

// OutputLocator returns the processed-output locator, preferring zip_path.
func (v *Video) OutputLocator() string {
	if v.ZipPath != "" {
		return v.ZipPath
	}
	return v.ZipKey
}
