package msw

import (
	"math"

	"github.com/notargets/goreservoir/ad"
)

const (
	laminarReynolds   = 200.
	turbulentReynolds = 4000.
)

// haalandFrictionFactor returns the turbulent Darcy friction factor from the Haaland correlation.
func haalandFrictionFactor(re ad.Eval, diameter, roughness float64) ad.Eval {
	v := ad.Log10(re.Inv().Scale(6.9).AddScalar(math.Pow(roughness/(3.7*diameter), 10./9.))).Scale(-3.6)
	return v.Mul(v).Inv()
}

// frictionFactor uses 16/Re below Re 200, Haaland above Re 4000 and a linear
// blend between them. A zero Reynolds number gives zero friction.
func frictionFactor(area, diameter float64, w, mu ad.Eval, roughness float64) ad.Eval {
	re := ad.Abs(w.Scale(diameter / area).Div(mu))
	switch {
	case re.Val == 0:
		return ad.Constant(0)
	case re.Val < laminarReynolds:
		return re.Inv().Scale(16)
	case re.Val > turbulentReynolds:
		return haalandFrictionFactor(re, diameter, roughness)
	}
	var (
		f1 = 16. / laminarReynolds
		f2 = haalandFrictionFactor(ad.Constant(turbulentReynolds), diameter, roughness).Val
	)
	return re.AddScalar(-laminarReynolds).Scale((f2 - f1) / (turbulentReynolds - laminarReynolds)).AddScalar(f1)
}

// frictionPressureLoss is 2 f L w^2 / (A^2 D rho) for mass rate w.
func frictionPressureLoss(length, diameter, area, roughness float64, density, w, mu ad.Eval) ad.Eval {
	f := frictionFactor(area, diameter, w, mu, roughness)
	return f.Mul(w).Mul(w).Scale(2 * length / (area * area * diameter)).Div(density)
}

// velocityHead is w^2 / (2 A^2 rho) for mass rate w.
func velocityHead(area float64, w, density ad.Eval) ad.Eval {
	return w.Mul(w).Scale(0.5 / (area * area)).Div(density)
}
