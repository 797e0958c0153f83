package screening

import "github.com/ducnm/chainscreen/internal/core/domain"

// wrappedPrivacyAssets maps bridged or wrapped tickers to the underlying
// privacy coin so WXMR screens the same as XMR.
var wrappedPrivacyAssets = map[string]string{
	"WXMR":   "XMR",
	"WZEC":   "ZEC",
	"RENZEC": "ZEC",
	"WDASH":  "DASH",
}

// defaultSets is the compiled-in watchlist snapshot. Sanctioned
// addresses come from the OFAC SDN list; mixer contracts are the
// Tornado Cash pools and router plus a handful of other known mixers.
// An operator deployment should refresh these through the Redis-backed
// watchlist instead of editing this file.
func defaultSets() Sets {
	return Sets{
		Sanctioned: []string{
			// Lazarus Group and related SDN entries.
			"0x8589427373D6D84E98730D7795D8f6f8731FDA16",
			"0x098B716B8Aaf21512996dC57EB0615e2383E2f96",
			"0x7F367cC41522cE07553e823bf3be79A889DEbe1B",
			"0xa7e5d5a720f06526557c513402f2e6b5fa20b008",
			"0x3Cffd56B47B7b41c56258D9C7731ABaDc360E073",
			"0x53b6936513e738f44FB50d2b9476730C0Ab3Bfc1",
			// Sanctioned BTC addresses.
			"1Kys8fqDen8NGFUJ6AFcXfFW5qquuTH4eh",
			"bc1qw4cxpe6sxa5dg6sdwxjph959cw6yztrzl4r54s",
			"3PKiHs4GY4rFg8dpppNVPXGPqMX6K2cBML",
		},
		ChainMixers: map[domain.ChainID][]string{
			domain.ChainEthereum: {
				// Tornado Cash ETH pools (0.1, 1, 10, 100) and router.
				"0x12D66f87A04A9E220743712cE6d9bB1B5616B8Fc",
				"0x47CE0C6eD5B0Ce3d3A51fdb1C52DC66a7c3c2936",
				"0x910Cbd523D972eb0a6f4cAe4618aD62622b39DbF",
				"0xA160cdAB225685dA1d56aa342Ad8841c3b53f291",
				"0xd90e2f925DA726b50C4Ed8D0Fb90Ad053324F31b",
			},
			domain.ChainBSC: {
				"0x84443CFd09A48AF6eF360C6976C5392aC5023a1F",
				"0xd47438C816c9E7f2E2888E060936a499Af9582b3",
			},
			domain.ChainPolygon: {
				"0x1E34A77868E19A6647b1f2F47B51ed72dEDE95DD",
				"0xdf231d99Ff8b6c6CBF4E9B9a945CBAcEF9339178",
			},
			domain.ChainArbitrum: {
				"0x84443CFd09A48AF6eF360C6976C5392aC5023a1F",
			},
			domain.ChainOptimism: {
				"0x84443CFd09A48AF6eF360C6976C5392aC5023a1F",
			},
			domain.ChainAvalanche: {
				"0x330bdFADE01eE9bF63C209Ee33102DD334618e0a",
			},
		},
		OtherMixers: []string{
			// Blender.io / Sinbad / ChipMixer deposit addresses.
			"bc1qyw33hunxvkjvgurfgt2dn4ql0u8krkhlh73pq6",
			"bc1q3y5v2khlyvemcz042wl98dzflywr8ghglqws6s",
			"1CF68Vo4KVNgd8ZjVVCvJ6WNnCzi3widk1",
			"0x722122dF12D4e14e13Ac3b6895a86e84145b6967",
		},
		Privacy: []string{
			"XMR", "ZEC", "DASH", "SCRT", "ZEN", "FIRO", "BEAM", "GRIN",
		},
	}
}
