// Package chronograph продвигает аукционы по расписанию этапов
// и публикует их результаты.
package chronograph

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"

	"github.com/senyabanana/auction-service/internal/costs"
	"github.com/senyabanana/auction-service/internal/models"
	"github.com/senyabanana/auction-service/internal/schedule"
	"github.com/senyabanana/auction-service/internal/utils"

	"gopkg.in/yaml.v3"
)

// SortBids возвращает предложения в порядке назначения ходов: худшее
// текущее положение первым. Ключ сортировки зависит от способа оценки:
// приведенная цена, NPV для esco, иначе сырая цена. При равенстве
// решает время подачи. Для esco порядок обратный.
func SortBids(bids []models.Bid) []models.Bid {
	isESCO := false
	withFeatures := false
	for i := range bids {
		if bids[i].Value.AmountPerformance != "" {
			isESCO = true
		}
		if bids[i].AmountFeatures != "" {
			withFeatures = true
		}
	}

	key := func(b *models.Bid) *big.Rat {
		var raw string
		switch {
		case withFeatures:
			raw = b.AmountFeatures
		case isESCO:
			raw = b.Value.AmountPerformance
		default:
			return costs.RatFromFloat(b.Value.AmountValue())
		}
		r, err := costs.RatFromString(raw)
		if err != nil {
			return new(big.Rat)
		}
		return r
	}

	sorted := make([]models.Bid, len(bids))
	copy(sorted, bids)
	sort.SliceStable(sorted, func(i, j int) bool {
		cmp := key(&sorted[i]).Cmp(key(&sorted[j]))
		if cmp == 0 {
			if isESCO {
				return sorted[i].Date.Before(sorted[j].Date)
			}
			return sorted[i].Date.After(sorted[j].Date)
		}
		if isESCO {
			return cmp < 0
		}
		return cmp > 0
	})
	return sorted
}

// GetLabel возвращает обезличенное имя участника с номером n (с нуля).
func GetLabel(n int) *models.Label {
	n++
	return &models.Label{
		En: fmt.Sprintf("Bidder #%d", n),
		Uk: fmt.Sprintf("Учасник #%d", n),
		Ru: fmt.Sprintf("Участник #%d", n),
	}
}

// GetBidderNumber возвращает номер участника в начальном снимке ставок.
func GetBidderNumber(bidderID string, initialBids []models.StageResult) int {
	for n := range initialBids {
		if initialBids[n].BidderID == bidderID {
			return n
		}
	}
	return -1
}

// copyBidStageFields переносит публикуемые поля предложения в запись этапа,
// снимка или результатов. Для esco сумма - нормализованная дробь.
func copyBidStageFields(bid *models.Bid, result *models.StageResult) {
	result.BidderID = bid.ID
	date := bid.Date
	result.Time = &date

	if bid.AmountFeatures != "" {
		result.AmountFeatures = bid.AmountFeatures
	}
	if bid.Coeficient != "" {
		result.Coeficient = bid.Coeficient
	}
	if bid.AmountWeighted != nil {
		result.AmountWeighted = bid.AmountWeighted
	}

	if bid.Value.Amount != nil {
		result.Amount = bid.Value.Amount
	}
	if bid.Value.YearlyPaymentsPercentage != nil {
		result.YearlyPaymentsPercentage = bid.Value.YearlyPaymentsPercentage
	}
	if bid.Value.AnnualCostsReduction != nil {
		result.AnnualCostsReduction = bid.Value.AnnualCostsReduction
	}
	if bid.Value.AmountPerformance != "" {
		result.AmountPerformance = normalizeFraction(bid.Value.AmountPerformance)
	}
	if bid.Value.ContractDuration != nil {
		years := bid.Value.ContractDuration.Years
		days := bid.Value.ContractDuration.Days
		result.ContractDurationYears = &years
		result.ContractDurationDays = &days
	}
}

func normalizeFraction(s string) string {
	r, err := costs.RatFromString(s)
	if err != nil {
		return s
	}
	return r.RatString()
}

// UpdateAuctionResults пересобирает секцию results в порядке сортировки ставок.
func UpdateAuctionResults(auction *models.Auction) {
	auction.Results = make([]models.StageResult, 0, len(auction.Bids))
	for _, bid := range SortBids(auction.Bids) {
		result := models.StageResult{
			Label: GetLabel(GetBidderNumber(bid.ID, auction.InitialBids)),
		}
		copyBidStageFields(&bid, &result)
		auction.Results = append(auction.Results, result)
	}
}

// PublishBidsMadeInCurrentStage сворачивает ставку, поданную в текущем раунде,
// в опубликованное значение предложения и в поля этапа.
// Если участник не ставил, раунд проходит без изменений.
func (e *Engine) PublishBidsMadeInCurrentStage(auction *models.Auction) {
	currentStage := auction.CurrentStage
	stage := &auction.Stages[currentStage]
	if stage.BidderID == "" || stage.BidderID == schedule.BidderTBD {
		e.log.Errorf("bidder stage bidder is not set %d", currentStage)
		return
	}

	bid := auction.GetBid(stage.BidderID)
	if bid == nil {
		e.log.Errorf("bidder from stage %d not found", currentStage)
		return
	}

	posted := bid.Stages[strconv.Itoa(currentStage)]
	if posted == nil {
		e.log.Infof("bidder %s has not changed its bid", stage.BidderID)
		return
	}

	bid.Date = posted.Time
	if posted.Amount != nil {
		bid.Value.Amount = posted.Amount
	}
	if posted.AmountPerformance != "" {
		bid.Value.AmountPerformance = posted.AmountPerformance
		bid.Value.YearlyPaymentsPercentage = posted.YearlyPaymentsPercentage
		bid.Value.ContractDuration = posted.ContractDuration
	}

	recomputeDerivedAmounts(auction, bid)

	copyBidStageFields(bid, &stage.StageResult)
	stage.Changed = true
	e.log.Infof("publishing bidder %s posted bid", stage.BidderID)
}

// recomputeDerivedAmounts обновляет производные оценочные поля предложения
// после сворачивания ставки.
func recomputeDerivedAmounts(auction *models.Auction, bid *models.Bid) {
	if auction.Features && bid.Coeficient != "" {
		coeficient, err := costs.RatFromString(bid.Coeficient)
		if err == nil {
			var amountFeatures *big.Rat
			if bid.Value.AmountPerformance != "" {
				performance, perr := costs.RatFromString(bid.Value.AmountPerformance)
				if perr != nil {
					return
				}
				amountFeatures = costs.AmountToFeatures(performance, coeficient, false)
			} else {
				amountFeatures = costs.AmountToFeatures(
					costs.RatFromFloat(bid.Value.AmountValue()), coeficient, true)
			}
			bid.AmountFeatures = amountFeatures.RatString()
		}
	}

	switch {
	case bid.Denominator != nil && bid.Addition != nil:
		weighted, _ := costs.AmountToMixedWeighted(
			costs.DecimalFromFloat(bid.Value.AmountValue()),
			costs.DecimalFromFloat(*bid.Denominator),
			costs.DecimalFromFloat(*bid.Addition),
		).Float64()
		bid.AmountWeighted = &weighted
	case bid.NonPriceCost != nil:
		weighted, _ := costs.AmountToWeighted(
			costs.DecimalFromFloat(bid.Value.AmountValue()),
			costs.DecimalFromFloat(*bid.NonPriceCost),
			true,
		).Float64()
		bid.AmountWeighted = &weighted
	}
}

// BuildAuditDocument собирает итоговый протокол аукциона в YAML.
// Возвращает имя файла и содержимое.
func BuildAuditDocument(auction *models.Auction) (string, []byte, error) {
	initialBids := make([]map[string]any, 0, len(auction.InitialBids))
	for i := range auction.InitialBids {
		initialBids = append(initialBids, auditBidderEntry(&auction.InitialBids[i]))
	}

	resultBids := make([]map[string]any, 0, len(auction.Bids))
	for i := range auction.Bids {
		resultBids = append(resultBids, auditResultEntry(&auction.Bids[i]))
	}

	timeline := map[string]any{
		"auction_start": map[string]any{
			"initial_bids": initialBids,
			"time":         utils.DatetimeToStr(auction.StartAt),
		},
		"results": map[string]any{
			"bids": resultBids,
			"time": utils.DatetimeToStr(auction.Stages[len(auction.Stages)-1].Start),
		},
	}

	audit := map[string]any{
		"id":        auction.ID,
		"tenderId":  auction.TenderSlug,
		"tender_id": auction.TenderID,
		"timeline":  timeline,
	}
	if auction.LotID != "" {
		audit["lot_id"] = auction.LotID
	}

	roundNumber, turn := 0, 0
	for i := range auction.Stages {
		stage := &auction.Stages[i]
		switch stage.Type {
		case models.StagePause:
			roundNumber++
			turn = 0
		case models.StageBids:
			turn++
			label := fmt.Sprintf("round_%d", roundNumber)
			round, ok := timeline[label].(map[string]any)
			if !ok {
				round = map[string]any{}
				timeline[label] = round
			}
			entry := map[string]any{
				"amount": stageAuditAmount(stage),
				"bidder": stage.BidderID,
			}
			if stage.Time != nil {
				entry["time"] = utils.DatetimeToStr(*stage.Time)
			}
			if auction.Features {
				entry["amount_features"] = stage.AmountFeatures
				entry["coeficient"] = stage.Coeficient
			}
			round[fmt.Sprintf("turn_%d", turn)] = entry
		}
	}

	data, err := yaml.Marshal(audit)
	if err != nil {
		return "", nil, fmt.Errorf("marshal audit document: %w", err)
	}
	fileName := fmt.Sprintf("audit_%s.yaml", auction.ID)
	return fileName, data, nil
}

func stageAuditAmount(stage *models.Stage) any {
	if stage.AmountPerformance != "" {
		return stage.AmountPerformance
	}
	if stage.Amount != nil {
		return *stage.Amount
	}
	return nil
}

func auditBidderEntry(result *models.StageResult) map[string]any {
	entry := map[string]any{
		"bidder": result.BidderID,
	}
	if result.Time != nil {
		entry["date"] = utils.DatetimeToStr(*result.Time)
	}
	if result.Label != nil {
		entry["label"] = map[string]any{
			"en": result.Label.En,
			"ru": result.Label.Ru,
			"uk": result.Label.Uk,
		}
	}
	if result.AmountPerformance != "" {
		entry["amount"] = result.AmountPerformance
	} else if result.Amount != nil {
		entry["amount"] = *result.Amount
	}
	if result.AmountFeatures != "" {
		entry["amount_features"] = result.AmountFeatures
		entry["coeficient"] = result.Coeficient
	}
	return entry
}

func auditResultEntry(bid *models.Bid) map[string]any {
	entry := map[string]any{
		"bidder": bid.ID,
		"time":   utils.DatetimeToStr(bid.Date),
	}
	if bid.Value.AmountPerformance != "" {
		entry["amount"] = normalizeFraction(bid.Value.AmountPerformance)
		if bid.Value.ContractDuration != nil {
			entry["contractDuration"] = map[string]any{
				"years": bid.Value.ContractDuration.Years,
				"days":  bid.Value.ContractDuration.Days,
			}
		}
		if bid.Value.YearlyPaymentsPercentage != nil {
			entry["yearlyPaymentsPercentage"] = *bid.Value.YearlyPaymentsPercentage
		}
	} else if bid.Value.Amount != nil {
		entry["amount"] = *bid.Value.Amount
	}
	if bid.AmountFeatures != "" {
		entry["amount_features"] = bid.AmountFeatures
		entry["coeficient"] = bid.Coeficient
	}
	return entry
}

// GetDocIDFromFilename находит документ с данным именем среди документов тендера.
func GetDocIDFromFilename(documents []models.TenderDocument, fileName string) string {
	for _, doc := range documents {
		if doc.Title == fileName {
			return doc.ID
		}
	}
	return ""
}

// BuildResultsBidsPatch собирает патч результатов для реестра: строки идут
// в порядке предложений тендера, незатронутые позиции остаются пустыми.
func BuildResultsBidsPatch(auction *models.Auction, tenderBids []models.TenderBid) *models.ResultsPatch {
	patch := &models.ResultsPatch{
		Data: models.ResultsPatchData{
			Bids: make([]models.BidPatchLine, 0, len(tenderBids)),
		},
	}
	for _, bidInfo := range tenderBids {
		var line models.BidPatchLine
		if bid := auction.GetBid(bidInfo.ID); bid != nil {
			if auction.LotID != "" {
				line.LotValues = make([]models.BidPatchLine, 0, len(bidInfo.LotValues))
				for _, lotBid := range bidInfo.LotValues {
					if lotBid.RelatedLot == auction.LotID {
						line.LotValues = append(line.LotValues, bidPatchFields(bid))
					} else {
						line.LotValues = append(line.LotValues, models.BidPatchLine{})
					}
				}
			} else {
				line = bidPatchFields(bid)
			}
		}
		patch.Data.Bids = append(patch.Data.Bids, line)
	}
	return patch
}

func bidPatchFields(bid *models.Bid) models.BidPatchLine {
	return models.BidPatchLine{
		Date: utils.DatetimeToStr(bid.Date),
		Value: &models.PatchValue{
			Amount:                   bid.Value.Amount,
			ContractDuration:         bid.Value.ContractDuration,
			YearlyPaymentsPercentage: bid.Value.YearlyPaymentsPercentage,
		},
	}
}

// SetAuctionBiddersRealNames раскрывает настоящие имена участников
// в снимке начальных ставок, этапах и результатах.
func SetAuctionBiddersRealNames(auction *models.Auction, tenderBids []models.TenderBid) {
	bidders := make(map[string]models.Tenderer, len(tenderBids))
	for _, b := range tenderBids {
		if len(b.Tenderers) > 0 {
			bidders[b.ID] = b.Tenderers[0]
		}
	}

	reveal := func(result *models.StageResult) {
		if result.BidderID == "" {
			return
		}
		bidder, ok := bidders[result.BidderID]
		if !ok {
			return
		}
		label := &models.Label{Uk: bidder.Name, Ru: bidder.Name, En: bidder.Name}
		if bidder.NameRu != "" {
			label.Ru = bidder.NameRu
		}
		if bidder.NameEn != "" {
			label.En = bidder.NameEn
		}
		result.Label = label
	}

	for i := range auction.InitialBids {
		reveal(&auction.InitialBids[i])
	}
	for i := range auction.Stages {
		reveal(&auction.Stages[i].StageResult)
	}
	for i := range auction.Results {
		reveal(&auction.Results[i])
	}
}
