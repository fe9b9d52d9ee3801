package hubspot

type objectInput struct {
	ID string `json:"id"`
}

type batchReadRequest struct {
	Inputs     []objectInput `json:"inputs"`
	Properties []string      `json:"properties"`
}

type batchUpdateInput struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

type batchUpdateRequest struct {
	Inputs []batchUpdateInput `json:"inputs"`
}

type archiveRequest struct {
	Inputs []objectInput `json:"inputs"`
}

type updateRequest struct {
	Properties map[string]string `json:"properties"`
}

type objectDTO struct {
	ID         string             `json:"id"`
	Properties map[string]*string `json:"properties"`
}

type paging struct {
	Next *struct {
		After string `json:"after"`
	} `json:"next"`
}

func (p *paging) after() string {
	if p == nil || p.Next == nil {
		return ""
	}
	return p.Next.After
}

type objectPage struct {
	Results []objectDTO `json:"results"`
	Paging  *paging     `json:"paging"`
}

type batchUpdateResponse struct {
	Status  string      `json:"status"`
	Results []objectDTO `json:"results"`
	Errors  []struct {
		Category string `json:"category"`
		Message  string `json:"message"`
	} `json:"errors"`
}

type associationPage struct {
	Results []struct {
		ToObjectID int64 `json:"toObjectId"`
	} `json:"results"`
	Paging *paging `json:"paging"`
}
