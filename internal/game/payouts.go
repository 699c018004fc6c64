package game

// Payouts describes how a finished game's money splits between the winners
// and the house.
type Payouts struct {
	TotalBuyIn      float64
	HouseFeeTotal   float64
	TotalPot        float64
	WinnerCount     int
	AmountPerWinner float64
}

// CalculatePayouts computes the house fee, net pot and per-winner share for
// a game of playerCount players each paying buyIn. Everyone except the
// single loser wins. Pots that do not divide evenly are left to float
// truncation; no remainder rule exists.
func CalculatePayouts(buyIn float64, playerCount int, feePct float64) Payouts {
	totalBuyIn := buyIn * float64(playerCount)
	houseFeeTotal := totalBuyIn * feePct
	totalPot := totalBuyIn - houseFeeTotal
	winnerCount := playerCount - 1
	return Payouts{
		TotalBuyIn:      totalBuyIn,
		HouseFeeTotal:   houseFeeTotal,
		TotalPot:        totalPot,
		WinnerCount:     winnerCount,
		AmountPerWinner: totalPot / float64(winnerCount),
	}
}
