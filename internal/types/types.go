package types

type Side string

type PositionStatus string

type CloseReason string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

const (
	PositionStatusOpen   PositionStatus = "OPEN"
	PositionStatusClosed PositionStatus = "CLOSED"
)

const (
	CloseReasonStopLoss    CloseReason = "StopLoss"
	CloseReasonTakeProfit  CloseReason = "TakeProfit"
	CloseReasonLiquidation CloseReason = "Liquidation"
	CloseReasonManual      CloseReason = "Manual"
)

func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}
