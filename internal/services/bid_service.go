package services

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/senyabanana/auction-service/internal/costs"
	"github.com/senyabanana/auction-service/internal/models"
	"github.com/senyabanana/auction-service/internal/repository"

	"github.com/sirupsen/logrus"
)

type BidService struct {
	Repo repository.AuctionRepository
	log  *logrus.Logger
}

// NewBidService создает новый экземпляр BidService.
func NewBidService(repo repository.AuctionRepository, log *logrus.Logger) *BidService {
	return &BidService{Repo: repo, log: log}
}

// GetAuctions получает страницу публичного списка аукционов.
func (s *BidService) GetAuctions(ctx context.Context, pageStr string) ([]models.AuctionListItem, error) {
	page := 1
	if pageStr != "" {
		var err error
		if page, err = strconv.Atoi(pageStr); err != nil || page < 1 {
			return nil, models.NewValidationError("invalid page number")
		}
	}

	auctions, err := s.Repo.ListAuctions(ctx, page-1)
	if err != nil {
		s.log.Errorf("list auctions: %v", err)
		return nil, models.NewErrorResponse(http.StatusInternalServerError, "internal server error")
	}
	return auctions, nil
}

// GetAuctionByID получает публичный документ аукциона.
// Предложения участников не раскрываются: в них секреты доступа и
// неопубликованные ставки текущего раунда.
func (s *BidService) GetAuctionByID(ctx context.Context, auctionID string) (*models.Auction, error) {
	auction, err := s.getAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	auction.Bids = nil
	return auction, nil
}

// PostBid валидирует и записывает ставку участника в текущем раунде.
func (s *BidService) PostBid(ctx context.Context, auctionID, bidderID, hash string, payload models.BidPayload) (*models.BidView, error) {
	auction, err := s.getAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	bid := auction.GetBid(bidderID)
	if bid == nil {
		return nil, models.NewValidationError(fmt.Sprintf("Invalid bidder_id %s", bidderID))
	}

	posted, err := GetPostedBid(auction, bid, hash, payload)
	if err != nil {
		return nil, err
	}

	updated, err := s.Repo.PostBidStage(ctx, auctionID, bidderID, auction.CurrentStage, posted)
	if err != nil {
		s.log.Errorf("post bid stage: %v", err)
		return nil, models.NewErrorResponse(http.StatusInternalServerError, "internal server error")
	}
	if updated == nil {
		return nil, models.NewNotFoundError("auction not found")
	}

	log := s.log.WithFields(logrus.Fields{"auction_id": auctionID, "bidder_id": bidderID})
	switch {
	case posted == nil:
		log.Infof("bidder %s cancelled their bid", bidderID)
	case auction.IsESCO():
		log.Infof("bidder %s placed bid with total amount %s, yearly payments percentage = %v, contract duration = %dy %dd",
			bidderID, posted.AmountPerformance, *posted.YearlyPaymentsPercentage,
			posted.ContractDuration.Years, posted.ContractDuration.Days)
	default:
		log.Infof("bidder %s posted bid: %v", bidderID, *posted.Amount)
	}

	// ответ строится по обновленному документу, для esco это существенно
	bid = updated.GetBid(bidderID)
	return GetBidResponseData(updated, bid), nil
}

// CheckAuthorization проверяет секрет участника и возвращает его текущую ставку
// вместе с приватными коэффициентами оценки.
func (s *BidService) CheckAuthorization(ctx context.Context, auctionID, bidderID, hash string) (*models.BidView, error) {
	if bidderID == "" || hash == "" {
		return nil, models.NewUnauthorizedError("bidder_id or hash not provided")
	}

	auction, err := s.getAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	bid := auction.GetBid(bidderID)
	if bid == nil {
		return nil, models.NewValidationError(fmt.Sprintf("Invalid bidder_id %s", bidderID))
	}
	if bid.Hash != hash {
		return nil, models.NewUnauthorizedError("hash is invalid")
	}

	view := GetBidResponseData(auction, bid)
	view.Coeficient = bid.Coeficient
	view.NonPriceCost = bid.NonPriceCost
	view.Addition = bid.Addition
	view.Denominator = bid.Denominator

	s.log.WithFields(logrus.Fields{"auction_id": auctionID, "bidder_id": bidderID}).
		Info("bidder has passed check authorization")
	return view, nil
}

func (s *BidService) getAuction(ctx context.Context, auctionID string) (*models.Auction, error) {
	auction, err := s.Repo.GetAuction(ctx, auctionID)
	if err != nil {
		s.log.Errorf("get auction: %v", err)
		return nil, models.NewErrorResponse(http.StatusInternalServerError, "internal server error")
	}
	if auction == nil {
		return nil, models.NewNotFoundError("auction not found")
	}
	return auction, nil
}

// GetPostedBid валидирует ставку и возвращает значение для записи в слот раунда.
// nil без ошибки означает отзыв ставки: слот должен быть удален.
// Порядок проверок фиксирован: секрет, тип этапа, очередность хода,
// наличие полей, сигнальное значение отзыва, границы.
func GetPostedBid(auction *models.Auction, bid *models.Bid, hash string, payload models.BidPayload) (*models.PostedBid, error) {
	if bid.Hash != hash {
		return nil, models.NewForbiddenError("Invalid hash")
	}

	currentStage := auction.CurrentStage
	if currentStage < 0 || currentStage >= len(auction.Stages) {
		return nil, models.NewValidationError("Stage not for bidding")
	}
	stage := &auction.Stages[currentStage]
	if stage.Type != models.StageBids {
		return nil, models.NewValidationError("Stage not for bidding")
	}
	if stage.BidderID != bid.ID {
		return nil, models.NewValidationError("Not valid bidder")
	}

	var posted *models.PostedBid
	if auction.IsESCO() {
		escoBid, withdrawn, err := validateESCOFields(auction, stage, bid, payload)
		if err != nil {
			return nil, err
		}
		if withdrawn {
			return nil, nil
		}
		posted = escoBid
	} else {
		amount, err := validateAmount(auction, stage, bid, payload)
		if err != nil {
			return nil, err
		}
		if amount == models.WithdrawalSentinel {
			return nil, nil
		}
		posted = &models.PostedBid{Amount: &amount}
	}

	now := time.Now()
	posted.Time = now
	return posted, nil
}

// StageAuctionType определяет способ оценки по опубликованным полям этапа.
func StageAuctionType(stage *models.Stage, bid *models.Bid) models.AuctionType {
	if stage.AmountFeatures != "" {
		return models.AuctionMeat
	}
	if stage.AmountWeighted != nil {
		if bid.Denominator != nil {
			return models.AuctionMixed
		}
		return models.AuctionLCC
	}
	return models.AuctionDefault
}

// validateAmount проверяет цену против опорной цены текущего этапа.
// Границы считаются только в точной арифметике.
func validateAmount(auction *models.Auction, stage *models.Stage, bid *models.Bid, payload models.BidPayload) (float64, error) {
	if payload.Amount == nil {
		return 0, models.NewValidationError("Bid amount is required")
	}
	amount := *payload.Amount
	if amount <= 0 && amount != models.WithdrawalSentinel {
		return 0, models.NewValidationError("Too low value")
	}
	if amount == models.WithdrawalSentinel {
		return amount, nil
	}

	minStep := costs.DecimalFromFloat(auction.MinimalStep.AmountValue())

	switch StageAuctionType(stage, bid) {
	case models.AuctionDefault:
		if stage.Amount == nil {
			return 0, models.NewValidationError("Stage not for bidding")
		}
		maxAllowed := costs.AmountAllowedDecimal(costs.DecimalFromFloat(*stage.Amount), minStep, true)
		if costs.DecimalFromFloat(amount).GreaterThan(maxAllowed) {
			return 0, models.NewValidationError("Too high value")
		}
	case models.AuctionMeat:
		coeficient, err := costs.RatFromString(bid.Coeficient)
		if err != nil {
			return 0, models.NewValidationError("Invalid bidder coeficient")
		}
		features, err := costs.RatFromString(stage.AmountFeatures)
		if err != nil {
			return 0, models.NewValidationError("Invalid stage amount")
		}
		maxAllowed := costs.AmountFromFeatures(features, coeficient, true)
		maxAllowed.Sub(maxAllowed, costs.RatFromFloat(auction.MinimalStep.AmountValue()))
		if costs.RatFromFloat(amount).Cmp(maxAllowed) > 0 {
			return 0, models.NewValidationError("Too high value")
		}
	case models.AuctionLCC:
		if bid.NonPriceCost == nil {
			return 0, models.NewValidationError("Bidder non price cost is not set")
		}
		maxAllowed := costs.AmountFromWeighted(
			costs.DecimalFromFloat(*stage.AmountWeighted),
			costs.DecimalFromFloat(*bid.NonPriceCost),
			true,
		)
		maxAllowed = costs.AmountAllowedDecimal(maxAllowed, minStep, true)
		if costs.DecimalFromFloat(amount).GreaterThan(maxAllowed) {
			return 0, models.NewValidationError("Too high value")
		}
	case models.AuctionMixed:
		if bid.Denominator == nil || bid.Addition == nil {
			return 0, models.NewValidationError("Bidder denominator is not set")
		}
		maxAllowed := costs.AmountFromMixedWeighted(
			costs.DecimalFromFloat(*stage.AmountWeighted),
			costs.DecimalFromFloat(*bid.Denominator),
			costs.DecimalFromFloat(*bid.Addition),
		)
		maxAllowed = costs.AmountAllowedDecimal(maxAllowed, minStep, true)
		if costs.DecimalFromFloat(amount).GreaterThan(maxAllowed) {
			return 0, models.NewValidationError("Too high value")
		}
	}
	return amount, nil
}

// validateESCOFields проверяет условия энергосервисной ставки и считает ее NPV.
// Второй результат true означает отзыв ставки.
func validateESCOFields(auction *models.Auction, stage *models.Stage, bid *models.Bid, payload models.BidPayload) (*models.PostedBid, bool, error) {
	if payload.YearlyPaymentsPercentage == nil {
		return nil, false, models.NewValidationError("Provide yearlyPaymentsPercentage")
	}
	yearlyPercentage := *payload.YearlyPaymentsPercentage
	if yearlyPercentage == models.WithdrawalSentinel {
		return nil, true, nil
	}

	percentage := costs.RatFromFloat(yearlyPercentage)
	switch auction.FundingKind {
	case models.FundingOther:
		if percentage.Cmp(costs.MustRat("0.8")) < 0 || percentage.Cmp(costs.MustRat("1")) > 0 {
			return nil, false, models.NewValidationError("Percentage value must be between 80 and 100")
		}
	case models.FundingBudget:
		if auction.YearlyPaymentsPercentageRange == nil {
			return nil, false, models.NewValidationError("Auction yearlyPaymentsPercentageRange is not set")
		}
		percentageRange := *auction.YearlyPaymentsPercentageRange
		if percentage.Sign() < 0 || percentage.Cmp(costs.RatFromFloat(percentageRange)) > 0 {
			return nil, false, models.NewValidationError(
				fmt.Sprintf("Percentage value must be between 0 and %v", percentageRange*100))
		}
	}

	if payload.ContractDuration == nil || payload.ContractDurationDays == nil {
		return nil, false, models.NewValidationError("Provide contractDuration and contractDurationDays")
	}
	contractDuration := *payload.ContractDuration
	if contractDuration < 0 || contractDuration > costs.MaxContractDuration {
		return nil, false, models.NewValidationError(
			fmt.Sprintf("contractDuration must be between 0 and %d.", costs.MaxContractDuration))
	}
	durationDays := *payload.ContractDurationDays
	if durationDays < 0 || durationDays > costs.DaysInYear-1 {
		return nil, false, models.NewValidationError(
			fmt.Sprintf("contractDurationDays must be between 0 and %d.", costs.DaysInYear-1))
	}
	totalDuration := big.NewRat(int64(durationDays), costs.DaysInYear)
	totalDuration.Add(totalDuration, new(big.Rat).SetInt64(int64(contractDuration)))
	if totalDuration.Cmp(new(big.Rat).SetInt64(costs.MaxContractDuration)) > 0 {
		return nil, false, models.NewValidationError(
			fmt.Sprintf("Maximum contract duration is %d years", costs.MaxContractDuration))
	}
	if contractDuration+durationDays == 0 {
		return nil, false, models.NewValidationError("You can't bid 0 days and 0 years")
	}

	announcementDate, err := time.Parse(time.RFC3339, auction.NoticePublicationDate)
	if err != nil {
		return nil, false, models.NewValidationError("Invalid noticePublicationDate")
	}
	if auction.NBUDiscountRate == nil || auction.MinimalStepPercentage == nil {
		return nil, false, models.NewValidationError("Auction esco fields are not set")
	}

	amount := costs.NPV(
		contractDuration,
		durationDays,
		yearlyPercentage,
		bid.Value.AnnualCostsReduction,
		announcementDate,
		*auction.NBUDiscountRate,
	)

	minimalStepPercentage := costs.RatFromFloat(*auction.MinimalStepPercentage)
	switch StageAuctionType(stage, bid) {
	case models.AuctionDefault:
		// опорное значение esco-этапа хранится дробью
		var maxBid *big.Rat
		switch {
		case stage.AmountPerformance != "":
			parsed, perr := costs.RatFromString(stage.AmountPerformance)
			if perr != nil {
				return nil, false, models.NewValidationError("Invalid stage amount")
			}
			maxBid = parsed
		case stage.Amount != nil:
			maxBid = costs.RatFromFloat(*stage.Amount)
		default:
			return nil, false, models.NewValidationError("Stage not for bidding")
		}
		floor := new(big.Rat).Mul(maxBid, minimalStepPercentage)
		floor.Add(floor, maxBid)
		if amount.Cmp(floor) < 0 {
			return nil, false, models.NewValidationError("Amount NPV: Too low value")
		}
	case models.AuctionMeat:
		coeficient, err := costs.RatFromString(bid.Coeficient)
		if err != nil {
			return nil, false, models.NewValidationError("Invalid bidder coeficient")
		}
		features, err := costs.RatFromString(stage.AmountFeatures)
		if err != nil {
			return nil, false, models.NewValidationError("Invalid stage amount")
		}
		// шаг здесь прибавляется как есть, без умножения на ставку
		maxBid := new(big.Rat).Mul(features, coeficient)
		floor := new(big.Rat).Add(maxBid, minimalStepPercentage)
		if amount.Cmp(floor) < 0 {
			return nil, false, models.NewValidationError("Amount NPV: Too low value")
		}
	default:
		return nil, false, models.NewValidationError(
			"Auction type is not supported for esco procurement method type")
	}

	return &models.PostedBid{
		AmountPerformance: amount.RatString(),
		ContractDuration: &models.ContractDuration{
			Years: contractDuration,
			Days:  durationDays,
		},
		YearlyPaymentsPercentage: &yearlyPercentage,
	}, false, nil
}

// GetBidResponseData строит ответ участнику по текущему состоянию аукциона:
// ставку этого раунда с признаком changed или последнее опубликованное значение.
func GetBidResponseData(auction *models.Auction, bid *models.Bid) *models.BidView {
	view := &models.BidView{}
	currentStage := auction.CurrentStage
	if currentStage < 0 || currentStage >= len(auction.Stages) {
		return view
	}
	stage := &auction.Stages[currentStage]
	bidderTurn := stage.Type == models.StageBids && stage.BidderID == bid.ID

	var posted *models.PostedBid
	if bidderTurn {
		posted = bid.Stages[strconv.Itoa(currentStage)]
	}

	if auction.IsESCO() {
		if posted != nil {
			view.Changed = true
			view.YearlyPaymentsPercentage = posted.YearlyPaymentsPercentage
			if posted.ContractDuration != nil {
				view.ContractDurationYears = &posted.ContractDuration.Years
				view.ContractDurationDays = &posted.ContractDuration.Days
			}
		} else {
			// для esco возвращается последняя опубликованная ставка
			view.YearlyPaymentsPercentage = bid.Value.YearlyPaymentsPercentage
			if bid.Value.ContractDuration != nil {
				view.ContractDurationYears = &bid.Value.ContractDuration.Years
				view.ContractDurationDays = &bid.Value.ContractDuration.Days
			}
		}
		return view
	}

	if posted != nil {
		view.Amount = posted.Amount
		view.Changed = true
	}
	return view
}
