// Package textutil sanitizes media titles and tool-produced names into
// filesystem-safe filenames.
package textutil
