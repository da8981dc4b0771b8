package practicum

import (
	"github.com/tidwall/gjson"
)

// Homework is a single record of the "homeworks" list.
type Homework struct {
	Name      string
	Status    string
	HasStatus bool
}

// Response is a validated API answer.
type Response struct {
	Homeworks []Homework
	// CurrentDate is the server time (unix seconds); valid only if HasCurrentDate.
	CurrentDate    int64
	HasCurrentDate bool
}

// ValidateResponse checks the top-level shape of raw and returns the homework list.
//
// The list may be empty. Records are not inspected beyond extracting their
// name and status; ParseStatus owns that.
func ValidateResponse(raw []byte) ([]Homework, error) {
	if !gjson.ValidBytes(raw) {
		return nil, newError(KindResponse, "validate response", ErrInvalidJSON)
	}
	doc := gjson.ParseBytes(raw)
	return homeworksOf(doc)
}

func homeworksOf(doc gjson.Result) ([]Homework, error) {
	if !doc.IsObject() {
		return nil, newError(KindShape, "validate response", ErrNotObject)
	}
	list := doc.Get("homeworks")
	if !list.Exists() {
		return nil, newError(KindShape, "validate response", ErrNoHomeworks)
	}
	if !list.IsArray() {
		return nil, newError(KindShape, "validate response", ErrHomeworksNotArr)
	}

	items := list.Array()
	out := make([]Homework, 0, len(items))
	for _, it := range items {
		st := it.Get("status")
		out = append(out, Homework{
			Name:      it.Get("homework_name").String(),
			Status:    st.String(),
			HasStatus: st.Exists(),
		})
	}
	return out, nil
}

// DecodeResponse validates raw and extracts the optional current_date.
func DecodeResponse(raw []byte) (Response, error) {
	if !gjson.ValidBytes(raw) {
		return Response{}, newError(KindResponse, "decode response", ErrInvalidJSON)
	}
	doc := gjson.ParseBytes(raw)
	hws, err := homeworksOf(doc)
	if err != nil {
		return Response{}, err
	}
	resp := Response{Homeworks: hws}
	if cd := doc.Get("current_date"); cd.Type == gjson.Number {
		resp.CurrentDate = cd.Int()
		resp.HasCurrentDate = true
	}
	return resp, nil
}
