package router

import (
	"net/http"

	"github.com/senyabanana/auction-service/internal/handlers"
)

func InitRoutes(auctionHandler *handlers.AuctionHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/ping", handlers.PingHandler)
	mux.HandleFunc("/api/auctions", auctionHandler.GetAuctions)
	mux.HandleFunc("GET /api/auctions/{auctionId}", auctionHandler.GetAuctionByID)
	mux.HandleFunc("POST /api/auctions/{auctionId}/bids/{bidderId}", auctionHandler.PostBid)
	mux.HandleFunc("POST /api/auctions/{auctionId}/check_authorization", auctionHandler.CheckAuthorization)

	return mux
}
