package gcs

import "github.com/google/wire"

// ProviderSet is gcs providers.
var ProviderSet = wire.NewSet(ProvidePutSigner)
