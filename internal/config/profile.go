// Copyright 2024 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package config

import (
	"slices"

	"github.com/blinklabs-io/retarget/pow"
)

type Network struct {
	Params      *pow.Params // Consensus parameters
	Description string      // Human readable summary
}

func GetAvailableNetworks() []string {
	ret := make([]string, 0, len(Networks))
	for k := range Networks {
		ret = append(ret, k)
	}
	slices.Sort(ret)
	return ret
}

var Networks = map[string]Network{
	"mainnet": {
		Params:      &pow.MainNetParams,
		Description: "main network",
	},
	"testnet": {
		Params:      &pow.TestNetParams,
		Description: "public test network, allows minimum difficulty blocks",
	},
	"regtest": {
		Params:      &pow.RegressionNetParams,
		Description: "regression test network, no retargeting",
	},
}
