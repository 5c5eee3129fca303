//go:build !unix

package filesystem

import "io/fs"

func fileOwner(fs.FileInfo) string {
	return ""
}
