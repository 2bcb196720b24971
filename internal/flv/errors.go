package flv

import "errors"

// ErrContainerParse marks every structural failure encountered while
// reading an FLV tag stream or an AMF0 value tree: header mismatch, a
// body-size or tag-size-trailer mismatch, or a read past an AMF0 value's
// declared domain.
var ErrContainerParse = errors.New("flv: container parse error")
