// Package textutil sanitizes user-supplied text, such as captions, into
// filesystem- and object-key-safe names.
package textutil
