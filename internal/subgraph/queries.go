package subgraph

const poolFields = `
  id
  feeTier
  liquidity
  token0Price
  token1Price
  feesUSD
  volumeUSD
  totalValueLockedUSD
  token0 { id symbol decimals }
  token1 { id symbol decimals }
  poolDayData(where: { date_gte: $start, date_lte: $end }, orderBy: date, orderDirection: asc) {
    date
    tvlUSD
    feesUSD
    volumeUSD
  }
`

const findPoolQuery = `query FindPool($id: ID!, $start: Int!, $end: Int!) {
  pools(where: { id: $id }) {` + poolFields + `}
}`

const findPoolsQuery = `query FindPools($ids: [ID!]!, $start: Int!, $end: Int!) {
  pools(where: { id_in: $ids }) {` + poolFields + `}
}`

const listPoolsQuery = `query ListPools($first: Int!) {
  pools(first: $first, orderBy: totalValueLockedUSD, orderDirection: desc) {
    id
    feeTier
    liquidity
    token0Price
    token1Price
    feesUSD
    volumeUSD
    totalValueLockedUSD
    token0 { id symbol decimals }
    token1 { id symbol decimals }
  }
}`
