package mp4

import "errors"

// ErrContainerParse marks every structural failure encountered while
// walking a box tree or a sample table: a box that overruns its parent's
// declared extent, a malformed descriptor, or a sample-table reference
// to a chunk or sample-description index that does not exist.
var ErrContainerParse = errors.New("mp4: container parse error")
