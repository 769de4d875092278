package distributor

//go:generate mockgen -destination=../../mocks/distributor.go -package=mocks -mock_names=AttentionRequester=MockAttentionRequester . AttentionRequester

// AttentionRequester is the sole inbound trigger surface of the distribution engine.
// Anything that creates work or frees capacity calls it with the affected builder names.
// [ISP] Producers depend on this one method, not on the Distributor itself.
type AttentionRequester interface {
	RequestAttention(builders ...string)
}
