// Package storage publishes encoded artifacts to object storage.
//
// The Service interface hides the backend: s3 talks to any S3-compatible
// endpoint through the MinIO client and ensures the bucket exists before the
// first upload; local copies files into a directory the daemon serves under
// /files for development setups. Keys follow the jobs/{job_id}/{filename}
// convention and uploads with the same key overwrite.
package storage
