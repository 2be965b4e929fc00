// Package utils holds small helpers shared by the other packages.
package utils
