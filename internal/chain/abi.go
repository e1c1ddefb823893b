// internal/chain/abi.go
package chain

// launchpadABI covers the read surface of the launchpad contract and the
// payable comment entry point used for comment and voting fees.
const launchpadABI = `[
  {"type":"function","name":"getTokenInfo","stateMutability":"view",
   "inputs":[{"name":"token","type":"address"}],
   "outputs":[
     {"name":"name","type":"string"},
     {"name":"symbol","type":"string"},
     {"name":"metadata","type":"string"},
     {"name":"creator","type":"address"},
     {"name":"creatorAllocation","type":"uint256"},
     {"name":"heldTokens","type":"uint256"},
     {"name":"maxSupply","type":"uint256"},
     {"name":"currentSupply","type":"uint256"},
     {"name":"virtualTrust","type":"uint256"},
     {"name":"virtualTokens","type":"uint256"},
     {"name":"completed","type":"bool"},
     {"name":"creationTime","type":"uint256"}
   ]},
  {"type":"function","name":"getCurrentPrice","stateMutability":"view",
   "inputs":[{"name":"token","type":"address"}],
   "outputs":[{"name":"price","type":"uint256"}]},
  {"type":"function","name":"getAllTokens","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"tokens","type":"address[]"}]},
  {"type":"function","name":"getTokenHolders","stateMutability":"view",
   "inputs":[{"name":"token","type":"address"}],
   "outputs":[{"name":"holders","type":"address[]"}]},
  {"type":"function","name":"getUserVolume","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"}],
   "outputs":[{"name":"buyVolume","type":"uint256"},{"name":"sellVolume","type":"uint256"}]},
  {"type":"function","name":"addComment","stateMutability":"payable",
   "inputs":[{"name":"token","type":"address"},{"name":"comment","type":"string"}],
   "outputs":[]}
]`

const erc20ABI = `[
  {"type":"function","name":"balanceOf","stateMutability":"view",
   "inputs":[{"name":"account","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]}
]`
