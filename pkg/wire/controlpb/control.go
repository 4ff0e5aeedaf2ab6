package controlpb

// Empty is the shared response for RPCs with nothing to return.
type Empty struct{}

type UpdateActorInfoRequest struct {
	Table []ActorInfo `json:"table"`
}

type SubmitPlanRequest struct {
	Plan Plan `json:"plan"`
}

type SendBarrierRequest struct {
	Epoch uint64 `json:"epoch"`
}

type DropFragmentRequest struct {
	ID uint32 `json:"id"`
}
