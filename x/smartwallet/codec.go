package smartwallet

import (
	amino "github.com/tendermint/go-amino"
)

// cdc is the codec used to serialize all records and messages of this
// package. Records contain no interface fields, so no concrete type
// registration is needed.
var cdc = amino.NewCodec()
