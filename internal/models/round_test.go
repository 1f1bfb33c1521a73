package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoundParamsValidate(t *testing.T) {
	presale := func(mut func(*PresaleParams)) RoundParams {
		p := &PresaleParams{
			Price:               decimal.RequireFromString("0.5"),
			TokensForSale:       decimal.NewFromInt(10000),
			LiquidityBps:        6000,
			LockDays:            180,
			VestingCliffDays:    30,
			VestingDurationDays: 90,
		}
		if mut != nil {
			mut(p)
		}
		return RoundParams{Presale: p}
	}
	fairlaunch := func(mut func(*FairlaunchParams)) RoundParams {
		p := &FairlaunchParams{TokensForSale: decimal.NewFromInt(1000), LiquidityBps: 5000, LockDays: 30}
		if mut != nil {
			mut(p)
		}
		return RoundParams{Fairlaunch: p}
	}

	tests := []struct {
		name    string
		kind    RoundKind
		params  RoundParams
		wantErr string
	}{
		{name: "fractional presale price", kind: RoundKindPresale, params: presale(nil)},
		{name: "fairlaunch", kind: RoundKindFairlaunch, params: fairlaunch(nil)},
		{name: "kind mismatch", kind: RoundKindFairlaunch, params: presale(nil), wantErr: "fairlaunch params only"},
		{name: "unknown kind", kind: "AUCTION", params: presale(nil), wantErr: "unknown round kind"},
		{name: "zero price", kind: RoundKindPresale, params: presale(func(p *PresaleParams) { p.Price = decimal.Zero }), wantErr: "price must be positive"},
		{name: "no liquidity share", kind: RoundKindPresale, params: presale(func(p *PresaleParams) { p.LiquidityBps = 0 }), wantErr: "liquidity bps 0"},
		{name: "liquidity over 100%", kind: RoundKindFairlaunch, params: fairlaunch(func(p *FairlaunchParams) { p.LiquidityBps = 10001 }), wantErr: "liquidity bps 10001"},
		{name: "cliff past duration", kind: RoundKindPresale, params: presale(func(p *PresaleParams) { p.VestingCliffDays = 120 }), wantErr: "vesting cliff"},
		{name: "fractional token supply", kind: RoundKindFairlaunch, params: fairlaunch(func(p *FairlaunchParams) { p.TokensForSale = decimal.RequireFromString("10.5") }), wantErr: "whole number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate(tt.kind)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
