package common

// AuthorizationHeaderName is the HTTP header / gRPC metadata key carrying
// the bearer credential.
const AuthorizationHeaderName = "authorization"

// BearerScheme is the only accepted authorization scheme.
const BearerScheme = "Bearer"

// TokenTypeBearer is reported to clients as token_type.
const TokenTypeBearer = "bearer"
