package dex

import (
	"testing"
	"time"

	"github.com/ducnm/chainscreen/internal/core/domain"
	"github.com/shopspring/decimal"
)

const (
	wallet       = "0x00000000000000000000000000000000000wa11e"
	uniV3Router  = "0x68b3465833fb72A70ecDF485E0e4C7bd8665Fc45"
	pancakeRoute = "0x10ED43C718714eb63d5aA57B78B54704E256024E"

	usdcAddr = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	wethAddr = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
)

func usdc() domain.TokenInfo {
	return domain.TokenInfo{Address: usdcAddr, Symbol: "USDC", Decimals: 6}
}

func weth() domain.TokenInfo {
	return domain.TokenInfo{Address: wethAddr, Symbol: "WETH", Decimals: 18}
}

func transfer(hash, from, to string, token domain.TokenInfo, amount string) domain.TokenTransfer {
	return domain.TokenTransfer{
		TxHash: hash,
		From:   from,
		To:     to,
		Token:  token,
		Amount: decimal.RequireFromString(amount),
	}
}

func TestIdentifyProtocol(t *testing.T) {
	cases := []struct {
		name  string
		chain domain.ChainID
		addr  string
		want  domain.Protocol
	}{
		{"uniswap v3 router02 on ethereum", domain.ChainEthereum, uniV3Router, domain.ProtocolUniswapV3},
		{"uniswap v3 checked before defaults", domain.ChainPolygon, "0xE592427A0AEce92De3Edee1F18E0157C05861564", domain.ProtocolUniswapV3},
		{"1inch v5", domain.ChainEthereum, "0x1111111254EEB25477B68fb85Ed929f73A960582", domain.ProtocolOneInch},
		{"sushiswap ethereum", domain.ChainEthereum, "0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F", domain.ProtocolSushiSwap},
		{"pancakeswap on bsc", domain.ChainBSC, pancakeRoute, domain.ProtocolPancakeSwap},
		{"quickswap on polygon", domain.ChainPolygon, "0xa5E0829CaCEd8fFDD4De3c43696c57F7D7A678ff", domain.ProtocolQuickSwap},
		{"traderjoe on avalanche", domain.ChainAvalanche, "0x60aE616a2155Ee3d9A68541Ba4544862310933d4", domain.ProtocolTraderJoe},
		{"uniswap v2 default on ethereum", domain.ChainEthereum, "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D", domain.ProtocolUniswapV2},
		{"unknown address", domain.ChainEthereum, "0x000000000000000000000000000000000000dead", domain.ProtocolUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IdentifyProtocol(tc.chain, tc.addr); got != tc.want {
				t.Errorf("IdentifyProtocol(%s, %s) = %s, want %s", tc.chain, tc.addr, got, tc.want)
			}
		})
	}
}

func TestSelectorTables(t *testing.T) {
	if !IsSwapSelector("0x38ed1739" + "00deadbeef") {
		t.Error("swapExactTokensForTokens selector must classify as swap")
	}
	if IsSwapSelector("0xe8e33700" + "00") {
		t.Error("addLiquidity selector must not classify as swap")
	}
	if IsSwapSelector("0x38ed") {
		t.Error("truncated calldata must not classify")
	}

	typ, ok := LiquiditySelector("0xe8e3370000")
	if !ok || typ != domain.LiquidityAdd {
		t.Error("addLiquidity selector must tag ADD")
	}
	typ, ok = LiquiditySelector("0xbaa2abde00")
	if !ok || typ != domain.LiquidityRemove {
		t.Error("removeLiquidity selector must tag REMOVE")
	}
}

func TestReconstructSwap(t *testing.T) {
	tx := Transaction{
		Hash:        "0xswap1",
		BlockNumber: 123,
		Timestamp:   time.Unix(1700000000, 0).UTC(),
		From:        wallet,
		To:          uniV3Router,
		Input:       "0x04e45aaf" + "00",
	}
	transfers := []domain.TokenTransfer{
		transfer("0xswap1", wallet, "0xpool", usdc(), "1000"),
		transfer("0xswap1", "0xpool", wallet, weth(), "0.5"),
	}

	swap := ReconstructSwap(domain.ChainEthereum, wallet, tx, transfers)
	if swap == nil {
		t.Fatal("expected a reconstructed swap")
	}
	if swap.TokenIn.Symbol != "USDC" || swap.TokenOut.Symbol != "WETH" {
		t.Errorf("wrong direction: %s -> %s", swap.TokenIn.Symbol, swap.TokenOut.Symbol)
	}
	if !swap.EffectivePrice.Equal(decimal.RequireFromString("0.0005")) {
		t.Errorf("expected price 0.0005, got %s", swap.EffectivePrice)
	}
	if swap.Protocol != domain.ProtocolUniswapV3 {
		t.Errorf("expected UNISWAP_V3, got %s", swap.Protocol)
	}
}

func TestReconstructSwapFirstTransferWins(t *testing.T) {
	tx := Transaction{Hash: "0xswap2", From: wallet, To: uniV3Router}
	dai := domain.TokenInfo{Address: "0xdai", Symbol: "DAI", Decimals: 18}
	transfers := []domain.TokenTransfer{
		transfer("0xswap2", wallet, "0xpool", usdc(), "100"),
		transfer("0xswap2", wallet, "0xpool", dai, "50"), // second send, ignored
		transfer("0xswap2", "0xpool", wallet, weth(), "0.05"),
	}

	swap := ReconstructSwap(domain.ChainEthereum, wallet, tx, transfers)
	if swap == nil {
		t.Fatal("expected a swap")
	}
	if swap.TokenIn.Symbol != "USDC" {
		t.Errorf("first sent transfer defines tokenIn, got %s", swap.TokenIn.Symbol)
	}
}

func TestReconstructSwapInsufficientData(t *testing.T) {
	tx := Transaction{Hash: "0xswap3", From: wallet, To: uniV3Router}

	if swap := ReconstructSwap(domain.ChainEthereum, wallet, tx, nil); swap != nil {
		t.Error("no transfers: must return nil, not guess")
	}

	oneSide := []domain.TokenTransfer{
		transfer("0xswap3", wallet, "0xpool", usdc(), "100"),
		transfer("0xswap3", wallet, "0xpool", usdc(), "50"),
	}
	if swap := ReconstructSwap(domain.ChainEthereum, wallet, tx, oneSide); swap != nil {
		t.Error("no received transfer: must return nil")
	}
}

func TestReconstructSwapZeroAmountIn(t *testing.T) {
	tx := Transaction{Hash: "0xswap4", From: wallet, To: uniV3Router}
	transfers := []domain.TokenTransfer{
		transfer("0xswap4", wallet, "0xpool", usdc(), "0"),
		transfer("0xswap4", "0xpool", wallet, weth(), "1"),
	}

	swap := ReconstructSwap(domain.ChainEthereum, wallet, tx, transfers)
	if swap == nil {
		t.Fatal("expected a swap")
	}
	if !swap.EffectivePrice.IsZero() {
		t.Errorf("zero amountIn must yield zero price, got %s", swap.EffectivePrice)
	}
}

func TestReconstructLiquidity(t *testing.T) {
	tx := Transaction{Hash: "0xliq1", From: wallet, To: "0x7a250d5630b4cf539739df2c5dacb4c659f2488d"}
	transfers := []domain.TokenTransfer{
		transfer("0xliq1", wallet, "0xpool", usdc(), "1000"),
		transfer("0xliq1", wallet, "0xpool", weth(), "0.5"),
		transfer("0xliq1", "0xpool", wallet, domain.TokenInfo{Address: "0xlp", Symbol: "UNI-V2"}, "10"),
	}

	event := ReconstructLiquidity(domain.ChainEthereum, wallet, tx, domain.LiquidityAdd, transfers)
	if event == nil {
		t.Fatal("expected a liquidity event")
	}
	if event.Token0.Symbol != "USDC" || event.Token1.Symbol != "WETH" {
		t.Errorf("pool pair should be the first two distinct sent tokens, got %s/%s", event.Token0.Symbol, event.Token1.Symbol)
	}
	if event.EventType != domain.LiquidityAdd {
		t.Errorf("expected ADD, got %s", event.EventType)
	}

	// Remove: only received transfers count.
	removeTx := Transaction{Hash: "0xliq2", From: wallet, To: "0x7a250d5630b4cf539739df2c5dacb4c659f2488d"}
	removeTransfers := []domain.TokenTransfer{
		transfer("0xliq2", "0xpool", wallet, usdc(), "900"),
		transfer("0xliq2", "0xpool", wallet, weth(), "0.45"),
	}
	event = ReconstructLiquidity(domain.ChainEthereum, wallet, removeTx, domain.LiquidityRemove, removeTransfers)
	if event == nil || event.EventType != domain.LiquidityRemove {
		t.Fatal("expected REMOVE event")
	}
}

func TestReconstructLiquidityNeedsTwoTokens(t *testing.T) {
	tx := Transaction{Hash: "0xliq3", From: wallet, To: "0xrouter"}
	transfers := []domain.TokenTransfer{
		transfer("0xliq3", wallet, "0xpool", usdc(), "1000"),
	}

	if event := ReconstructLiquidity(domain.ChainEthereum, wallet, tx, domain.LiquidityAdd, transfers); event != nil {
		t.Error("a single relevant transfer cannot determine the pair")
	}
}

func TestClassifyAndSummarize(t *testing.T) {
	base := time.Unix(1700000000, 0).UTC()
	txs := []Transaction{
		{Hash: "0xs1", Timestamp: base, From: wallet, To: uniV3Router, Input: "0x04e45aaf00"},
		{Hash: "0xl1", Timestamp: base.Add(time.Hour), From: wallet, To: "0x7a250d5630b4cf539739df2c5dacb4c659f2488d", Input: "0xe8e3370000"},
		{Hash: "0xn1", Timestamp: base.Add(2 * time.Hour), From: wallet, To: "0xsomewhere", Input: "0xdeadbeef00"},
	}
	transfers := []domain.TokenTransfer{
		transfer("0xs1", wallet, "0xpool", usdc(), "1000"),
		transfer("0xs1", "0xpool", wallet, weth(), "0.5"),
		transfer("0xl1", wallet, "0xpool", usdc(), "500"),
		transfer("0xl1", wallet, "0xpool", weth(), "0.25"),
	}

	swaps, liquidity := Classify(domain.ChainEthereum, wallet, txs, transfers)
	if len(swaps) != 1 {
		t.Fatalf("expected 1 swap, got %d", len(swaps))
	}
	if len(liquidity) != 1 {
		t.Fatalf("expected 1 liquidity event, got %d", len(liquidity))
	}

	summary := Summarize(swaps, liquidity)
	if summary.SwapCount != 1 {
		t.Errorf("expected swap count 1, got %d", summary.SwapCount)
	}
	if summary.ByProtocol[domain.ProtocolUniswapV3] != 1 {
		t.Errorf("expected 1 uniswap v3 swap, got %+v", summary.ByProtocol)
	}
	if summary.ByPair["USDC-WETH"] != 1 {
		t.Errorf("pair key must be sorted and unordered, got %+v", summary.ByPair)
	}
	if summary.UniqueTokens != 2 {
		t.Errorf("expected 2 unique tokens, got %d", summary.UniqueTokens)
	}
	if summary.LiquidityAdds != 1 || summary.LiquidityRemoves != 0 {
		t.Errorf("expected 1 add / 0 removes, got %d/%d", summary.LiquidityAdds, summary.LiquidityRemoves)
	}
}
