package moralis

type TokenHoldersResp struct {
	Cursor      string      `json:"cursor"`
	TotalSupply string      `json:"totalSupply"`
	Page        int         `json:"page"`
	PageSize    int         `json:"page_size"`
	Result      []TokenHold `json:"result"`
}

type TokenHold struct {
	Balance                         string  `json:"balance"`                             // 原始余额字符串
	BalanceFormatted                string  `json:"balance_formatted"`                   // 格式化后的余额字符串（带精度）
	IsContract                      bool    `json:"is_contract"`                         // 是否为合约地址
	OwnerAddress                    string  `json:"owner_address"`                       // 持有者钱包地址
	OwnerAddressLabel               *string `json:"owner_address_label"`                 // 持有者标签（可为null）
	USDValue                        string  `json:"usd_value"`                           // 美元估值字符串
	PercentageRelativeToTotalSupply float64 `json:"percentage_relative_to_total_supply"` // 占总供应量百分比
}
