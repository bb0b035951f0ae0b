package institution

type InstitutionsResponse struct {
	Institutions []*Institution `json:"institutions"`
}

type BranchesResponse struct {
	Institution *Institution `json:"institution"`
	Branches    []*Branch    `json:"branches"`
}
