package main

import (
	"github.com/hviana/kvfs"
	"github.com/hviana/kvfs/kv/memkv"
)

// sharedEngine backs every subcommand invocation within a single process.
// It is memory-only: kvfscli is a demonstration and testing harness, not a
// persistent store; a real deployment would construct kvfs.New over a
// durable kv.Store implementation instead.
var sharedEngine = kvfs.New(memkv.New())
