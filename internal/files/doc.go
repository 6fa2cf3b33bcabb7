// Package files provides the filesystem helpers shared by the report
// writers: atomic replacement of an artifact and a writability probe for
// output directories.
package files
