package models

// Tenderer представляет юридическое лицо участника в реестре закупок.
type Tenderer struct {
	Name   string `json:"name"`
	NameRu string `json:"name_ru,omitempty"`
	NameEn string `json:"name_en,omitempty"`
}

// TenderLotValue представляет ценовое предложение участника по конкретному лоту.
type TenderLotValue struct {
	RelatedLot string `json:"relatedLot"`
	Status     string `json:"status,omitempty"`
}

// TenderBid представляет предложение участника, как его отдает реестр.
type TenderBid struct {
	ID        string           `json:"id"`
	Status    string           `json:"status,omitempty"`
	Tenderers []Tenderer       `json:"tenderers,omitempty"`
	LotValues []TenderLotValue `json:"lotValues,omitempty"`
}

// TenderDocument представляет документ, опубликованный у тендера.
type TenderDocument struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// PatchValue - поля ценового предложения, которые разрешено отправлять в реестр.
type PatchValue struct {
	Amount                   *float64          `json:"amount,omitempty"`
	ContractDuration         *ContractDuration `json:"contractDuration,omitempty"`
	YearlyPaymentsPercentage *float64          `json:"yearlyPaymentsPercentage,omitempty"`
}

// BidPatchLine - строка патча результатов для одного предложения.
// Пустая строка сериализуется как {} для позиционного соответствия.
type BidPatchLine struct {
	Date      string         `json:"date,omitempty"`
	Value     *PatchValue    `json:"value,omitempty"`
	LotValues []BidPatchLine `json:"lotValues,omitempty"`
}

// ResultsPatchData - содержимое патча результатов аукциона.
type ResultsPatchData struct {
	Bids []BidPatchLine `json:"bids"`
}

// ResultsPatch - патч результатов аукциона для эндпоинта /auction реестра.
type ResultsPatch struct {
	Data ResultsPatchData `json:"data"`
}
