package timers

import "fmt"

// speedThresholdMS is the delay above which scheduling primitives are
// rescaled. Shorter delays drive animations and are left alone.
const speedThresholdMS = 2000

// AccelScript returns the init script that divides long setTimeout and
// setInterval delays by the given factor. The guard keeps re-injection on the
// same document from compounding the scale.
func AccelScript(factor int) string {
	return fmt.Sprintf(`(() => {
  if (window.__timerScale) return;
  window.__timerScale = %d;
  const origTimeout = window.setTimeout;
  window.setTimeout = function (fn, delay, ...args) {
    if (typeof delay === 'number' && delay > %d) {
      delay = delay / window.__timerScale;
    }
    return origTimeout(fn, delay, ...args);
  };
  const origInterval = window.setInterval;
  window.setInterval = function (fn, delay, ...args) {
    if (typeof delay === 'number' && delay > %d) {
      delay = delay / window.__timerScale;
    }
    return origInterval(fn, delay, ...args);
  };
})();`, factor, speedThresholdMS, speedThresholdMS)
}

// reduceScript shortens visible countdowns. Counters below 10 are left alone
// and the result never drops under 10, so site-side verification that expects
// a running timer still sees one.
const reduceScript = `(() => {
  const selectors = '.timer, #timer, #counter, .countdown, [id*="time"], [class*="time"]';
  let touched = 0;
  document.querySelectorAll(selectors).forEach((el) => {
    const m = (el.innerText || '').match(/\d+/);
    if (!m) return;
    const value = parseInt(m[0], 10);
    if (value >= 10) {
      const reduced = Math.max(10, value - 40);
      el.innerText = el.innerText.replace(m[0], String(reduced));
      touched += 1;
    }
  });
  return touched;
})()`

// forceEnableScript strips disabled state from gate buttons whose text or id
// marks them as the way forward, and removes fixed overlays covering at least
// 40 percent of the viewport.
const forceEnableScript = `(() => {
  const keywords = ['continuar', 'descargar', 'siguiente', 'get link', 'ir al enlace', 'ingresar', 'vínculo', 'vinculo', 'enlace'];
  const knownIds = ['getLink', 'btn-main'];
  let enabled = 0;

  const candidates = document.querySelectorAll(
    'button, a, input[type="submit"], [aria-disabled="true"], .disabled, #getLink, #btn-main');
  candidates.forEach((el) => {
    const text = (el.innerText || el.value || '').toLowerCase();
    const hit = keywords.some((k) => text.includes(k)) || knownIds.includes(el.id);
    if (!hit) return;
    el.removeAttribute('disabled');
    el.setAttribute('aria-disabled', 'false');
    el.classList.remove('disabled');
    el.style.pointerEvents = 'auto';
    el.style.opacity = '1';
    el.style.visibility = 'visible';
    if (el.style.display === 'none') el.style.display = 'inline-block';
    el.style.zIndex = '2147483647';
    enabled += 1;
  });

  const vw = window.innerWidth;
  const vh = window.innerHeight;
  document.querySelectorAll('div, section, aside').forEach((el) => {
    const style = window.getComputedStyle(el);
    if (style.position !== 'fixed' && style.position !== 'absolute') return;
    const rect = el.getBoundingClientRect();
    if (rect.width * rect.height >= vw * vh * 0.4) {
      el.remove();
    }
  });
  return enabled;
})()`

// findReadyScript looks for a visible, enabled gate element. Known ids and
// classes are tried first, then any anchor or button whose text carries a
// positive keyword. On a hit the element is clicked in-page (direct call plus
// synthetic event) and its center coordinates are returned so the driver can
// follow up with a raw mouse click.
const findReadyScript = `(() => {
  const known = ['#getLink', '#btn-main', '.btn-success', '.get-link', 'a.btn'];
  const keywords = ['continuar', 'descargar', 'siguiente', 'get link', 'ir al enlace', 'ingresar', 'vínculo', 'vinculo', 'ver enlace'];

  const usable = (el) => {
    const style = window.getComputedStyle(el);
    if (style.display === 'none' || style.visibility === 'hidden') return false;
    if (el.disabled || el.getAttribute('aria-disabled') === 'true') return false;
    const rect = el.getBoundingClientRect();
    return rect.width > 0 && rect.height > 0;
  };

  const fire = (el) => {
    const rect = el.getBoundingClientRect();
    try {
      el.click();
      el.dispatchEvent(new MouseEvent('click', { bubbles: true, cancelable: true, view: window }));
    } catch (e) { /* detached node */ }
    return {
      found: true,
      x: rect.left + rect.width / 2,
      y: rect.top + rect.height / 2,
      text: (el.innerText || '').trim(),
    };
  };

  for (const sel of known) {
    let nodes;
    try { nodes = document.querySelectorAll(sel); } catch (e) { continue; }
    for (const el of nodes) {
      if (usable(el)) return fire(el);
    }
  }
  for (const el of document.querySelectorAll('a, button, input[type="submit"]')) {
    if (!usable(el)) continue;
    const text = (el.innerText || el.value || '').toLowerCase();
    if (keywords.some((k) => text.includes(k))) return fire(el);
  }
  return { found: false, x: 0, y: 0, text: '' };
})()`
