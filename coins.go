// The treasury
//
// Copyright (c) 2025  The go-coup authors
//
// This file is part of go-coup.
//
// go-coup is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.
//
// go-coup is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public
// License, version 3, along with go-coup. If not, see
// <http://www.gnu.org/licenses/>

package coup

import "fmt"

// StartingCoins is the total number of coins in play.  The treasury
// plus every seat's coins always sums to this.
const StartingCoins = 50

// A Withdrawal moves coins from the treasury to a player.
type Withdrawal uint8

const (
	WithdrawIncome     Withdrawal = 1
	WithdrawForeignAid Withdrawal = 2
	WithdrawTax        Withdrawal = 3
)

// A Deposit moves coins from a player to the treasury.
type Deposit uint8

const (
	DepositAssassinate Deposit = 3
	DepositCoup        Deposit = 7
)

// A CoinPile is the common treasury.
type CoinPile struct {
	coins uint8
}

// NewCoinPile funds a game for COUNT players.  Each player starts
// with two coins, the treasury holds the rest.
func NewCoinPile(count int) (CoinPile, uint8) {
	return CoinPile{coins: StartingCoins - 2*uint8(count)}, 2
}

// Remaining is the number of coins left in the treasury.
func (p *CoinPile) Remaining() uint8 {
	return p.coins
}

// ReturnCoins refunds a dead player's coins to the treasury.
func (p *CoinPile) ReturnCoins(coins uint8) {
	p.coins += coins
}

// Withdraw pays out a withdrawal on top of a player's coins,
// returning the player's new total.
func (p *CoinPile) Withdraw(w Withdrawal, coins uint8) (uint8, error) {
	amount := uint8(w)
	if p.coins < amount {
		return coins, fmt.Errorf("treasury has %d coins, cannot pay %d", p.coins, amount)
	}
	p.coins -= amount
	return coins + amount, nil
}

// Spend takes a deposit out of a player's coins, returning the
// player's new total.
func (p *CoinPile) Spend(d Deposit, coins uint8) (uint8, error) {
	amount := uint8(d)
	if coins < amount {
		return coins, fmt.Errorf("player has %d coins, cannot spend %d", coins, amount)
	}
	p.coins += amount
	return coins - amount, nil
}
