//go:build !linux

package stream

// no portable hints outside of linux
var ReadOptimizations []Optimization
var WriteOptimizations []Optimization
